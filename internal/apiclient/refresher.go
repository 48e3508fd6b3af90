package apiclient

import (
	"context"

	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/pribylovaa/kelibe/internal/session"
)

// PathRefresh — эндпойнт обновления access-токена.
const PathRefresh = "/auth/token/refresh/"

// Refresher ходит в бэкенд "сырым" клиентом, без auth-транспорта:
// ответ 401 на refresh не запускает ещё один refresh.
type Refresher struct {
	raw *Client
}

var _ session.Refresher = (*Refresher)(nil)

func NewRefresher(opts Options) (*Refresher, error) {
	raw, err := build(opts, nil)
	if err != nil {
		return nil, err
	}

	return &Refresher{raw: raw}, nil
}

func (r *Refresher) RefreshTokens(ctx context.Context, refresh string) (models.RefreshResponse, error) {
	var out models.RefreshResponse
	err := r.raw.Post(ctx, PathRefresh, models.RefreshRequest{Refresh: refresh}, &out,
		WithFallback("session expired, please sign in again"))

	return out, err
}
