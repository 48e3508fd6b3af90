// session — пара токенов клиента и процедура её обновления.
//
// Service держит ссылку на Store и Refresher. Refresh выполняется
// single-flight: конкурентные вызовы с одним и тем же refresh-токеном
// разделяют один запрос к бэкенду (ключ — sha256 токена, группа общая на
// процесс, поэтому параллельные запросы шлюза с одинаковыми cookie тоже
// делают один вызов). Результат каждый вызывающий пишет в своё хранилище.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/kelibe/internal/metrics"
	"github.com/pribylovaa/kelibe/internal/models"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
	"github.com/pribylovaa/kelibe/internal/pkg/redact"
	"github.com/pribylovaa/kelibe/internal/tokenstore"
)

// ErrNoRefreshToken — refresh-токена нет, обновлять нечем.
var ErrNoRefreshToken = errors.New("no refresh token")

// Refresher выпускает новую пару по refresh-токену (POST /auth/token/refresh/).
type Refresher interface {
	RefreshTokens(ctx context.Context, refresh string) (models.RefreshResponse, error)
}

var flights singleflight.Group

type Service struct {
	store     tokenstore.Store
	refresher Refresher
}

func New(store tokenstore.Store, refresher Refresher) *Service {
	return &Service{store: store, refresher: refresher}
}

// Tokens возвращает текущую пару.
func (s *Service) Tokens(ctx context.Context) (models.TokenPair, error) {
	const op = "session.Service.Tokens"

	pair, err := s.store.Get(ctx)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// AccessToken — текущий access-токен или пустая строка.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	pair, err := s.Tokens(ctx)
	return pair.Access, err
}

// HasTokens — есть ли хотя бы один токен. Ошибку хранилища трактуем как отсутствие.
func (s *Service) HasTokens(ctx context.Context) bool {
	pair, err := s.Tokens(ctx)
	if err != nil {
		logctx.From(ctx).Warn("token_store_read_failed", slog.String("err", err.Error()))
		return false
	}

	return !pair.Empty()
}

func (s *Service) SetTokens(ctx context.Context, pair models.TokenPair) error {
	const op = "session.Service.SetTokens"

	if err := s.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	const op = "session.Service.Clear"

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh обновляет access-токен и возвращает новое значение.
//
// Порядок:
//  1. нет refresh-токена — ErrNoRefreshToken, хранилище не трогаем;
//  2. запрос к бэкенду (один на все конкурентные вызовы с тем же токеном);
//  3. успех — сохраняем новый access и ротированный refresh (или прежний,
//     если бэкенд его не вернул);
//  4. неудача — очищаем оба токена и возвращаем исходную ошибку.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	const op = "session.Service.Refresh"

	pair, err := s.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if pair.Refresh == "" {
		metrics.Refreshes.WithLabelValues(metrics.RefreshNoToken).Inc()
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	sum := sha256.Sum256([]byte(pair.Refresh))
	key := hex.EncodeToString(sum[:])

	l := logctx.Op(ctx, op, slog.String("refresh_fp", redact.Fingerprint(pair.Refresh)))

	ch := flights.DoChan(key, func() (any, error) {
		// Запрос не должен обрываться отменой контекста одного из ожидающих.
		return s.refresher.RefreshTokens(context.WithoutCancel(ctx), pair.Refresh)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	case res = <-ch:
	}

	if res.Err != nil {
		metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		l.Warn("refresh_failed", slog.String("err", res.Err.Error()))

		if cerr := s.store.Clear(ctx); cerr != nil {
			l.Error("token_store_clear_failed", slog.String("err", cerr.Error()))
		}

		return "", fmt.Errorf("%s: %w", op, res.Err)
	}

	out := res.Val.(models.RefreshResponse)

	next := models.TokenPair{Access: out.Access, Refresh: out.Refresh}
	if next.Refresh == "" {
		next.Refresh = pair.Refresh
	}

	if err := s.store.Set(ctx, next); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	result := metrics.RefreshOK
	if res.Shared {
		result = metrics.RefreshShared
	}
	metrics.Refreshes.WithLabelValues(result).Inc()
	l.Debug("refresh_ok", slog.Bool("shared", res.Shared), slog.Bool("rotated", out.Refresh != ""))

	return next.Access, nil
}
