package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
)

// Panics turns a panic in the handler chain into an internal error so
// the Errors middleware can log and answer it.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = weberr.InternalError(
						fmt.Errorf("panic: %v", rec),
						weberr.WithFields(map[string]interface{}{"stack": string(debug.Stack())}),
					)
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
