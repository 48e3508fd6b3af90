package apiclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/kelibe/internal/metrics"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
	"github.com/pribylovaa/kelibe/internal/session"
)

// roundTripFunc — адаптер функции к http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// metadataTransport добавляет в исходящий запрос заголовки:
//   - X-Request-Id (из контекста или новый uuid),
//   - User-Agent (если задан),
//   - Accept: application/json.
func metadataTransport(next http.RoundTripper, userAgent string) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		r = r.Clone(r.Context())

		if r.Header.Get("X-Request-Id") == "" {
			rid := RequestIDFrom(r.Context())
			if rid == "" {
				rid = uuid.NewString()
			}
			r.Header.Set("X-Request-Id", rid)
		}
		if userAgent != "" {
			r.Header.Set("User-Agent", userAgent)
		}
		r.Header.Set("Accept", "application/json")

		return next.RoundTrip(r)
	})
}

// loggingTransport пишет одну запись на попытку: msg="http_client",
// method, path, status, dur, request_id; и обновляет метрики.
// Тело запроса и заголовок Authorization не логируются.
func loggingTransport(next http.RoundTripper, base *slog.Logger) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		dur := time.Since(start)

		code := 0
		if resp != nil {
			code = resp.StatusCode
		}

		metrics.ClientRequests.WithLabelValues(r.Method, metrics.StatusClass(code)).Inc()
		metrics.ClientLatency.WithLabelValues(r.Method).Observe(dur.Seconds())

		l := base
		if l == nil {
			l = logctx.From(r.Context())
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", r.Header.Get("X-Request-Id")),
			slog.Int("status", code),
			slog.Duration("dur", dur),
			slog.Bool("retried", IsRetried(r.Context())),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			l.LogAttrs(r.Context(), slog.LevelWarn, "http_client", attrs...)
			return resp, err
		}

		l.LogAttrs(r.Context(), slog.LevelInfo, "http_client", attrs...)
		return resp, nil
	})
}

// authTransport прикладывает Bearer access-токен и обрабатывает 401:
//  1. запрос уже помечен как повторённый — ответ отдаётся как есть;
//  2. в хранилище уже лежит другой access (refresh сделал конкурентный
//     запрос) — повтор с ним без нового refresh;
//  3. иначе refresh и один повтор с новым токеном;
//  4. refresh не удался — токены очищаются, наружу уходит исходный 401.
//
// Повтор возможен только для запросов без тела или с GetBody.
func authTransport(next http.RoundTripper, sess *session.Service) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		ctx := r.Context()

		if r.Header.Get("Authorization") != "" {
			return next.RoundTrip(r)
		}

		sent, err := sess.AccessToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := next.RoundTrip(withBearer(r, sent))
		if err != nil || resp.StatusCode != http.StatusUnauthorized || IsRetried(ctx) {
			return resp, err
		}
		if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
			return resp, nil
		}

		l := logctx.From(ctx)
		ctx = MarkRetried(ctx)

		access, err := sess.AccessToken(ctx)
		if err != nil || access == "" || access == sent {
			access, err = sess.Refresh(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					// отменён только этот вызов: пара может быть уже обновлена другим
					return resp, nil
				}
				l.Info("session_expired", slog.String("path", r.URL.Path), slog.String("err", err.Error()))
				if cerr := sess.Clear(ctx); cerr != nil {
					l.Warn("token_store_clear_failed", slog.String("err", cerr.Error()))
				}
				return resp, nil
			}
		}

		retry := r.Clone(ctx)
		if r.GetBody != nil {
			body, err := r.GetBody()
			if err != nil {
				return resp, nil
			}
			retry.Body = body
		}

		drain(resp)

		return next.RoundTrip(withBearer(retry, access))
	})
}

func withBearer(r *http.Request, token string) *http.Request {
	if token == "" {
		return r
	}

	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+token)

	return r
}

// drain дочитывает и закрывает тело, чтобы соединение вернулось в пул.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
