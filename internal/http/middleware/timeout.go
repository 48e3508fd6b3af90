package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
)

// Timeout задаёт бюджет запроса гейтвея: профиль, refresh и logout к бэкенду
// укладываются в него вместе. Более ранний дедлайн родителя сохраняется.
// Исчерпанный бюджет пишется в лог запроса; d<=0 — no-op.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logctx.From(ctx).Warn("request_budget_exceeded",
					slog.String("path", r.URL.Path),
					slog.Duration("budget", d),
				)
			}
		})
	}
}
