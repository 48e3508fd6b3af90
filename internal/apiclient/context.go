package apiclient

import "context"

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxRetried   ctxKey = "retried"
)

// WithRequestID кладёт request id; metadata-транспорт отправит его как X-Request-Id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestIDFrom возвращает request id из контекста или пустую строку.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// MarkRetried помечает запрос как уже повторённый после 401:
// повторный 401 для такого запроса refresh не запускает.
func MarkRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxRetried, true)
}

// IsRetried сообщает, помечен ли запрос.
func IsRetried(ctx context.Context) bool {
	v, _ := ctx.Value(ctxRetried).(bool)
	return v
}
