package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
	"github.com/pribylovaa/kelibe/internal/pkg/redact"
	"github.com/pribylovaa/kelibe/internal/session"
)

// Эндпойнты /auth/*.
const (
	PathRegister    = "/auth/register/"
	PathLogin       = "/auth/token/"
	PathVerifyToken = "/auth/token/verify/"
	PathVerifyEmail = "/auth/verify-email/"
	PathResendOTP   = "/auth/resend-otp/"
	PathGoogle      = "/auth/google/"
	PathProfile     = "/auth/profile/"
	PathLogout      = "/auth/logout/"
)

// ErrIncompleteTokens — успешный ответ входа без пары токенов.
var ErrIncompleteTokens = errors.New("auth response has no token pair")

// Auth — операции авторизации.
type Auth struct {
	api     *apiclient.Client
	session *session.Service
}

func NewAuth(api *apiclient.Client, sess *session.Service) *Auth {
	return &Auth{api: api, session: sess}
}

// Register регистрирует пользователя. Токены не сохраняются: дальше
// пользователь подтверждает e-mail через OTP и входит.
func (a *Auth) Register(ctx context.Context, in models.RegisterRequest) (models.RegisterResponse, error) {
	const op = "service.Auth.Register"
	const fallback = "Registration failed"

	var out models.RegisterResponse
	if err := a.api.Post(ctx, PathRegister, in, &out, apiclient.WithFallback(fallback)); err != nil {
		return models.RegisterResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := embeddedError(out.Error, fallback); err != nil {
		return models.RegisterResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("user_registered", slog.String("email", redact.Email(in.Email)))

	return out, nil
}

// Login — вход по e-mail и паролю (POST /auth/token/).
//
// Успех: пара сохраняется в сессию до возврата. Неподтверждённый e-mail:
// *apierrors.Error класса KindUnverified, пара не сохраняется.
func (a *Auth) Login(ctx context.Context, in models.Credentials) (models.AuthResponse, error) {
	const op = "service.Auth.Login"

	out, err := a.authenticate(ctx, PathLogin, in, in.Email, "Login failed")
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// GoogleAuth — вход по Google credential (POST /auth/google/), в остальном как Login.
func (a *Auth) GoogleAuth(ctx context.Context, credential string) (models.AuthResponse, error) {
	const op = "service.Auth.GoogleAuth"

	out, err := a.authenticate(ctx, PathGoogle, models.GoogleAuthRequest{Credential: credential}, "", "Google authentication failed")
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (a *Auth) authenticate(ctx context.Context, path string, in any, email, fallback string) (models.AuthResponse, error) {
	var out models.AuthResponse
	if err := a.api.Post(ctx, path, in, &out, apiclient.WithFallback(fallback)); err != nil {
		return models.AuthResponse{}, err
	}

	if err := embeddedError(out.Error, fallback); err != nil {
		return models.AuthResponse{}, err
	}

	if out.Unverified() {
		if email == "" && out.User != nil {
			email = out.User.Email
		}
		logctx.From(ctx).Info("login_unverified", slog.String("email", redact.Email(email)))
		return out, apierrors.Unverified(email)
	}

	pair := out.Pair()
	if !pair.Complete() {
		return models.AuthResponse{}, &apierrors.Error{Kind: apierrors.KindServer, Message: fallback, Err: ErrIncompleteTokens}
	}

	if err := a.session.SetTokens(ctx, pair); err != nil {
		return models.AuthResponse{}, err
	}

	return out, nil
}

// VerifyEmail подтверждает e-mail одноразовым кодом.
func (a *Auth) VerifyEmail(ctx context.Context, email, otp string) (models.MessageResponse, error) {
	const op = "service.Auth.VerifyEmail"

	var out models.MessageResponse
	err := a.api.Post(ctx, PathVerifyEmail, models.VerifyEmailRequest{Email: email, OTP: otp}, &out,
		apiclient.WithFallback("Email verification failed"))
	if err != nil {
		return models.MessageResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ResendOTP запрашивает новый код подтверждения.
func (a *Auth) ResendOTP(ctx context.Context, email string) (models.MessageResponse, error) {
	const op = "service.Auth.ResendOTP"

	var out models.MessageResponse
	err := a.api.Post(ctx, PathResendOTP, models.ResendOTPRequest{Email: email}, &out,
		apiclient.WithFallback("OTP resend failed"))
	if err != nil {
		return models.MessageResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// GetProfile — текущий пользователь (GET /auth/profile/).
func (a *Auth) GetProfile(ctx context.Context) (models.User, error) {
	const op = "service.Auth.GetProfile"

	var out models.User
	if err := a.api.Get(ctx, PathProfile, &out, apiclient.WithFallback("Failed to load profile")); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateProfile — частичное обновление пользователя (PATCH /auth/profile/).
func (a *Auth) UpdateProfile(ctx context.Context, patch models.UserPatch) (models.User, error) {
	const op = "service.Auth.UpdateProfile"

	var out models.User
	if err := a.api.Patch(ctx, PathProfile, patch, &out, apiclient.WithFallback("Failed to update profile")); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ValidateToken проверяет текущий access на бэкенде.
// Отклонённый токен удаляется из сессии и даёт (false, nil);
// сетевые и серверные сбои возвращаются ошибкой.
func (a *Auth) ValidateToken(ctx context.Context) (bool, error) {
	const op = "service.Auth.ValidateToken"

	access, err := a.session.AccessToken(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if access == "" {
		return false, nil
	}

	// Проверяется именно этот токен: refresh-and-retry здесь не нужен.
	err = a.api.Post(apiclient.MarkRetried(ctx), PathVerifyToken, models.VerifyTokenRequest{Token: access}, nil,
		apiclient.WithFallback("Token verification failed"))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apierrors.ErrAuthentication), errors.Is(err, apierrors.ErrValidation):
		if cerr := a.session.Clear(ctx); cerr != nil {
			return false, fmt.Errorf("%s: %w", op, cerr)
		}
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// Logout — безусловная очистка токенов, затем best-effort уведомление
// бэкенда прочитанной до очистки парой. Ошибка сервера только логируется.
func (a *Auth) Logout(ctx context.Context) error {
	const op = "service.Auth.Logout"

	l := logctx.From(ctx)

	pair, err := a.session.Tokens(ctx)
	if err != nil {
		l.Warn("logout_read_tokens_failed", slog.String("err", err.Error()))
	}

	if err := a.session.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if pair.Empty() {
		return nil
	}

	opts := []apiclient.CallOption{apiclient.WithFallback("Logout failed")}
	if pair.Access != "" {
		opts = append(opts, apiclient.WithBearer(pair.Access))
	}

	err = a.api.Post(apiclient.MarkRetried(ctx), PathLogout, models.LogoutRequest{Refresh: pair.Refresh}, nil, opts...)
	if err != nil {
		l.Warn("logout_remote_failed", slog.String("err", err.Error()))
	}

	return nil
}
