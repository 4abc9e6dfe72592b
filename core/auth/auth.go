// Package auth reads the caller's identity out of the shared session
// store. Signing users in happens elsewhere; this package only consumes
// sessions that the identity service has populated.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/claims"
)

// Session keys shared with the identity service.
const (
	keyUserID = "userID"
	keyEmail  = "email"
	keyRole   = "role"
)

// LoadAndSave adapts scs.SessionManager.LoadAndSave to web.Middleware.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var herr error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				herr = handler(r.Context(), w, r)
			})

			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return herr
		}
		return h
	}
	return m
}

// Login stores the caller in the session. The identity service calls it
// once credentials have been checked.
func Login(ctx context.Context, sm *scs.SessionManager, clm claims.Claims) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, keyUserID, clm.UserID)
	sm.Put(ctx, keyEmail, clm.Email)
	sm.Put(ctx, keyRole, clm.Role)
	return nil
}

// Authenticate rejects requests without a signed-in caller and attaches
// the caller's claims to the context.
func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := sm.GetString(ctx, keyUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Email:  sm.GetString(ctx, keyEmail),
				Role:   sm.GetString(ctx, keyRole),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin is Authenticate restricted to administrators.
func Admin(sm *scs.SessionManager) web.Middleware {
	authen := Authenticate(sm)
	m := func(handler web.Handler) web.Handler {
		admin := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := claims.Get(ctx)
			if err != nil || !clm.IsAdmin() {
				return weberr.Forbidden(errors.New("admin role required"))
			}
			return handler(ctx, w, r)
		}
		return authen(admin)
	}
	return m
}
