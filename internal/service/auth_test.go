package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
)

func TestLogin_PersistsPair(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathLogin, http.StatusOK,
		`{"access":"AT1","refresh":"RT1","user":{"id":1,"email":"a@b.com"},"email_verified":true}`)

	out, err := NewAuth(e.api, e.session).Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	require.EqualValues(t, 1, out.User.ID)
	require.Equal(t, models.TokenPair{Access: "AT1", Refresh: "RT1"}, e.tokens(t))

	req := e.be.requests(http.MethodPost, PathLogin)
	require.Len(t, req, 1)
	require.Equal(t, map[string]any{"email": "a@b.com", "password": "x"}, decodeBody(t, req[0].Body))
}

func TestLogin_UnverifiedIsDistinguishable(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathLogin, http.StatusOK,
		`{"access":"AT1","refresh":"RT1","user":{"id":1,"email":"a@b.com","email_verified":false}}`)

	_, err := NewAuth(e.api, e.session).Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, apierrors.ErrUnverifiedAccount)
	require.Equal(t, apierrors.KindUnverified, apierrors.KindOf(err))
	require.True(t, e.tokens(t).Empty())
}

func TestLogin_UnverifiedBackendRejection(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathLogin, http.StatusForbidden,
		`{"detail":"Email is not verified. Please verify your email.","code":"email_not_verified"}`)

	_, err := NewAuth(e.api, e.session).Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, apierrors.ErrUnverifiedAccount)
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantMsg string
	}{
		{
			name:    "bad credentials",
			status:  http.StatusUnauthorized,
			body:    `{"detail":"No active account found with the given credentials"}`,
			wantIs:  apierrors.ErrAuthentication,
			wantMsg: "No active account found with the given credentials",
		},
		{
			name:    "embedded error",
			status:  http.StatusOK,
			body:    `{"error":"Invalid credentials"}`,
			wantIs:  apierrors.ErrValidation,
			wantMsg: "Invalid credentials",
		},
		{
			name:    "field errors",
			status:  http.StatusBadRequest,
			body:    `{"email":["Enter a valid email address."],"password":["This field may not be blank."]}`,
			wantIs:  apierrors.ErrValidation,
			wantMsg: "Enter a valid email address.",
		},
		{
			name:    "server error uses default",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantIs:  apierrors.ErrServer,
			wantMsg: "Login failed",
		},
		{
			name:    "no tokens in success",
			status:  http.StatusOK,
			body:    `{"user":{"id":1}}`,
			wantIs:  ErrIncompleteTokens,
			wantMsg: "Login failed",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, models.TokenPair{})
			e.be.on(http.MethodPost, PathLogin, tc.status, tc.body)

			_, err := NewAuth(e.api, e.session).Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
			require.ErrorIs(t, err, tc.wantIs)
			require.Equal(t, tc.wantMsg, apierrors.Message(err))
			require.True(t, e.tokens(t).Empty())
		})
	}
}

func TestGoogleAuth_PersistsPair(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathGoogle, http.StatusOK,
		`{"access":"GA","refresh":"GR","user":{"id":7,"email":"g@b.com","email_verified":true}}`)

	out, err := NewAuth(e.api, e.session).GoogleAuth(context.Background(), "google-jwt")
	require.NoError(t, err)
	require.EqualValues(t, 7, out.User.ID)
	require.Equal(t, models.TokenPair{Access: "GA", Refresh: "GR"}, e.tokens(t))

	req := e.be.requests(http.MethodPost, PathGoogle)
	require.Equal(t, "google-jwt", decodeBody(t, req[0].Body)["credential"])
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathRegister, http.StatusCreated,
		`{"user":{"id":3,"email":"n@b.com","email_verified":false},"message":"OTP sent"}`)

	out, err := NewAuth(e.api, e.session).Register(context.Background(), models.RegisterRequest{
		Email: "n@b.com", Password: "p4ssw0rd!", Password2: "p4ssw0rd!",
	})
	require.NoError(t, err)
	require.Equal(t, "OTP sent", out.Message)
	require.True(t, e.tokens(t).Empty())
}

func TestRegister_FirstFieldMessage(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathRegister, http.StatusBadRequest,
		`{"password":["Password fields didn't match."],"email":["user with this email already exists."]}`)

	_, err := NewAuth(e.api, e.session).Register(context.Background(), models.RegisterRequest{Email: "n@b.com"})
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "Password fields didn't match.", apierrors.Message(err))
	require.Contains(t, apierrors.FieldErrors(err), "email")
}

func TestVerifyEmailAndResendOTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	e.be.on(http.MethodPost, PathVerifyEmail, http.StatusOK, `{"message":"Email verified"}`)
	e.be.on(http.MethodPost, PathResendOTP, http.StatusBadRequest, `{}`)

	a := NewAuth(e.api, e.session)

	out, err := a.VerifyEmail(context.Background(), "n@b.com", "123456")
	require.NoError(t, err)
	require.Equal(t, "Email verified", out.Message)
	require.Equal(t, map[string]any{"email": "n@b.com", "otp": "123456"},
		decodeBody(t, e.be.requests(http.MethodPost, PathVerifyEmail)[0].Body))

	_, err = a.ResendOTP(context.Background(), "n@b.com")
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "OTP resend failed", apierrors.Message(err))
}

func TestGetAndUpdateProfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})
	e.be.on(http.MethodGet, PathProfile, http.StatusOK, `{"id":1,"email":"a@b.com","first_name":"Ann"}`)
	e.be.on(http.MethodPatch, PathProfile, http.StatusOK, `{"id":1,"email":"a@b.com","first_name":"Anna"}`)

	a := NewAuth(e.api, e.session)

	u, err := a.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ann", u.FirstName)
	require.Equal(t, "Bearer AT1", e.be.requests(http.MethodGet, PathProfile)[0].Auth)

	name := "Anna"
	u, err = a.UpdateProfile(context.Background(), models.UserPatch{FirstName: &name})
	require.NoError(t, err)
	require.Equal(t, "Anna", u.FirstName)
	require.Equal(t, map[string]any{"first_name": "Anna"}, decodeBody(t, e.be.requests(http.MethodPatch, PathProfile)[0].Body))
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	t.Run("no token", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, models.TokenPair{})
		ok, err := NewAuth(e.api, e.session).ValidateToken(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, e.be.requests(http.MethodPost, PathVerifyToken))
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})
		e.be.on(http.MethodPost, PathVerifyToken, http.StatusOK, `{}`)

		ok, err := NewAuth(e.api, e.session).ValidateToken(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "AT1", decodeBody(t, e.be.requests(http.MethodPost, PathVerifyToken)[0].Body)["token"])
	})

	t.Run("rejected clears without refresh", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})
		e.be.on(http.MethodPost, PathVerifyToken, http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)

		ok, err := NewAuth(e.api, e.session).ValidateToken(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
		require.True(t, e.tokens(t).Empty())
		require.Empty(t, e.be.requests(http.MethodPost, "/auth/token/refresh/"))
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})
		e.be.on(http.MethodPost, PathVerifyToken, http.StatusInternalServerError, `{}`)

		ok, err := NewAuth(e.api, e.session).ValidateToken(context.Background())
		require.ErrorIs(t, err, apierrors.ErrServer)
		require.False(t, ok)
		require.False(t, e.tokens(t).Empty())
	})
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})
	e.be.on(http.MethodPost, PathLogout, http.StatusInternalServerError, `oops`)

	require.NoError(t, NewAuth(e.api, e.session).Logout(context.Background()))
	require.True(t, e.tokens(t).Empty())

	req := e.be.requests(http.MethodPost, PathLogout)
	require.Len(t, req, 1)
	require.Equal(t, "Bearer AT1", req[0].Auth)
	require.Equal(t, "RT1", decodeBody(t, req[0].Body)["refresh"])
}

func TestLogout_ClearsBeforeNotifyingBackend(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{Access: "AT1", Refresh: "RT1"})

	var storedDuringCall models.TokenPair
	e.be.handle(http.MethodPost, PathLogout, func(w http.ResponseWriter, _ *http.Request) {
		storedDuringCall, _ = e.store.Get(context.Background())
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, NewAuth(e.api, e.session).Logout(context.Background()))
	require.True(t, storedDuringCall.Empty())

	req := e.be.requests(http.MethodPost, PathLogout)
	require.Len(t, req, 1)
	require.Equal(t, "Bearer AT1", req[0].Auth)
}

func TestLogout_WithoutTokensSkipsNetwork(t *testing.T) {
	t.Parallel()

	e := newEnv(t, models.TokenPair{})
	require.NoError(t, NewAuth(e.api, e.session).Logout(context.Background()))
	require.Empty(t, e.be.requests(http.MethodPost, PathLogout))
}
