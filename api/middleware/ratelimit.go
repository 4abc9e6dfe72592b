package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/rate"
)

// RateLimit rejects callers that exceed their token bucket. Authenticated
// callers are keyed by user id, anonymous ones by remote address, so it
// must run after authentication to be per user.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			key := remoteHost(r)
			if clm, err := claims.Get(ctx); err == nil {
				key = "user:" + clm.UserID
			}

			if !lim.Allow(key) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"),
					weberr.WithFields(map[string]interface{}{"limit_key": key}))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
