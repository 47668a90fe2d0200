// Package actor reads the caller's identity, set by the authenticating
// proxy in front of the service, into the request context.
package actor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"guide-booking/pkg/response"
)

const Header = "X-User-ID"

type ctxKey struct{}

func New(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(
			slog.String("component", "middleware/actor"),
		)

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(Header))
			if id == "" {
				log.Warn("request without user identity",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), Header+" header is required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		}

		return http.HandlerFunc(fn)
	}
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// ID returns the caller's user id, empty when the middleware did not run.
func ID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
