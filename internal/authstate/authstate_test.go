package authstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/pribylovaa/kelibe/mocks"
)

func newCtx(t *testing.T) (*Context, *mocks.MockAuthService, *mocks.MockSession) {
	t.Helper()

	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)
	sess := mocks.NewMockSession(ctrl)

	return New(auth, sess), auth, sess
}

func user(id int64) models.User {
	return models.User{ID: id, Email: "a@b.com"}
}

func TestInitialize_NoTokens(t *testing.T) {
	t.Parallel()

	c, _, sess := newCtx(t)
	sess.EXPECT().HasTokens(gomock.Any()).Return(false)

	st := c.Initialize(context.Background())
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.False(t, st.IsAuthenticated())
}

func TestInitialize_ProfileOK(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	sess.EXPECT().HasTokens(gomock.Any()).Return(true)
	auth.EXPECT().GetProfile(gomock.Any()).Return(user(1), nil)

	st := c.Initialize(context.Background())
	require.Equal(t, StatusAuthenticated, st.Status)
	require.EqualValues(t, 1, st.User.ID)
}

func TestInitialize_RefreshThenProfile(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	gomock.InOrder(
		sess.EXPECT().HasTokens(gomock.Any()).Return(true),
		auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, apierrors.FromResponse(401, nil, "")),
		sess.EXPECT().Refresh(gomock.Any()).Return("AT2", nil),
		auth.EXPECT().GetProfile(gomock.Any()).Return(user(2), nil),
	)

	st := c.Initialize(context.Background())
	require.Equal(t, StatusAuthenticated, st.Status)
	require.EqualValues(t, 2, st.User.ID)
}

func TestInitialize_RefreshFails(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	gomock.InOrder(
		sess.EXPECT().HasTokens(gomock.Any()).Return(true),
		auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, errors.New("boom")),
		sess.EXPECT().Refresh(gomock.Any()).Return("", errors.New("refresh rejected")),
		sess.EXPECT().Clear(gomock.Any()).Return(nil),
	)

	st := c.Initialize(context.Background())
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.Nil(t, st.User)
}

func TestInitialize_SecondProfileFails(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	gomock.InOrder(
		sess.EXPECT().HasTokens(gomock.Any()).Return(true),
		auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, errors.New("boom")),
		sess.EXPECT().Refresh(gomock.Any()).Return("AT2", nil),
		auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, errors.New("boom again")),
		sess.EXPECT().Clear(gomock.Any()).Return(nil),
	)

	st := c.Initialize(context.Background())
	require.Equal(t, StatusUnauthenticated, st.Status)
}

func TestInitialize_RunsOnce(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)

	release := make(chan struct{})
	sess.EXPECT().HasTokens(gomock.Any()).Return(true).Times(1)
	auth.EXPECT().GetProfile(gomock.Any()).DoAndReturn(func(context.Context) (models.User, error) {
		<-release
		return user(1), nil
	}).Times(1)

	done := make(chan State)
	go func() { done <- c.Initialize(context.Background()) }()

	// Пока идёт инициализация, повторный вызов не ждёт и видит Initializing.
	require.Eventually(t, func() bool { return c.State().Status == StatusInitializing }, time.Second, time.Millisecond)
	require.Equal(t, StatusInitializing, c.Initialize(context.Background()).Status)

	close(release)
	require.Equal(t, StatusAuthenticated, (<-done).Status)

	// После завершения — тоже без повторных вызовов.
	require.Equal(t, StatusAuthenticated, c.Initialize(context.Background()).Status)
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)

	in := models.Credentials{Email: "a@b.com", Password: "x"}
	auth.EXPECT().Login(gomock.Any(), in).Return(models.AuthResponse{Access: "AT1", Refresh: "RT1"}, nil)
	auth.EXPECT().GetProfile(gomock.Any()).Return(user(1), nil)

	var mu sync.Mutex
	var seen []State
	cancel := c.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	require.NoError(t, c.Login(context.Background(), in))

	st := c.State()
	require.True(t, st.IsAuthenticated())
	require.Equal(t, StatusAuthenticated, st.Status)
	require.False(t, st.Loading)
	require.Empty(t, st.Error)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	require.True(t, seen[0].Loading)
	require.False(t, seen[0].IsAuthenticated())
	require.False(t, seen[len(seen)-1].Loading)
}

func TestLogin_Unverified(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(models.AuthResponse{}, apierrors.Unverified("a@b.com"))

	err := c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, apierrors.ErrUnverifiedAccount)

	st := c.State()
	require.False(t, st.IsAuthenticated())
	require.False(t, st.Loading)
	require.Empty(t, st.Error)
}

func TestLogin_Failure(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	auth.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(models.AuthResponse{}, apierrors.FromResponse(401, []byte(`{"detail":"No active account"}`), "Login failed"))

	err := c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "bad"})
	require.ErrorIs(t, err, apierrors.ErrAuthentication)

	st := c.State()
	require.False(t, st.Loading)
	require.Equal(t, "No active account", st.Error)

	c.ClearError()
	require.Empty(t, c.State().Error)
}

func TestLogin_FailedReloginEndsSession(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	gomock.InOrder(
		auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(models.AuthResponse{Access: "A", Refresh: "R"}, nil),
		auth.EXPECT().GetProfile(gomock.Any()).Return(user(1), nil),
		auth.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(models.AuthResponse{}, apierrors.FromResponse(401, []byte(`{"detail":"bad creds"}`), "Login failed")),
		sess.EXPECT().Clear(gomock.Any()).Return(nil),
	)

	require.NoError(t, c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "x"}))
	require.True(t, c.State().IsAuthenticated())

	require.Error(t, c.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "bad"}))

	st := c.State()
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.Nil(t, st.User)
	require.Equal(t, "bad creds", st.Error)
}

func TestLogin_ProfileFailsUsesResponseUser(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	u := user(9)
	auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(models.AuthResponse{Access: "A", Refresh: "R", User: &u}, nil)
	auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, errors.New("timeout"))

	require.NoError(t, c.Login(context.Background(), models.Credentials{}))
	require.EqualValues(t, 9, c.State().User.ID)
}

func TestLogin_ProfileFailsWithoutUser(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(models.AuthResponse{Access: "A", Refresh: "R"}, nil)
	auth.EXPECT().GetProfile(gomock.Any()).Return(models.User{}, apierrors.Network(errors.New("dial"), "Network error"))
	sess.EXPECT().Clear(gomock.Any()).Return(nil)

	err := c.Login(context.Background(), models.Credentials{})
	require.ErrorIs(t, err, apierrors.ErrNetwork)
	require.False(t, c.State().IsAuthenticated())
	require.Equal(t, "Network error", c.State().Error)
}

func TestGoogleAuth_SymmetricToLogin(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	auth.EXPECT().GoogleAuth(gomock.Any(), "cred").Return(models.AuthResponse{Access: "A", Refresh: "R"}, nil)
	auth.EXPECT().GetProfile(gomock.Any()).Return(user(4), nil)

	require.NoError(t, c.GoogleAuth(context.Background(), "cred"))
	require.EqualValues(t, 4, c.State().User.ID)

	c2, auth2, _ := newCtx(t)
	auth2.EXPECT().GoogleAuth(gomock.Any(), "cred").Return(models.AuthResponse{}, apierrors.Unverified("g@b.com"))
	require.ErrorIs(t, c2.GoogleAuth(context.Background(), "cred"), apierrors.ErrUnverifiedAccount)
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	auth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(models.RegisterResponse{Message: "OTP sent"}, nil)

	out, err := c.Register(context.Background(), models.RegisterRequest{Email: "n@b.com"})
	require.NoError(t, err)
	require.Equal(t, "OTP sent", out.Message)

	st := c.State()
	require.False(t, st.IsAuthenticated())
	require.False(t, st.Loading)
}

func TestRegister_Failure(t *testing.T) {
	t.Parallel()

	c, auth, _ := newCtx(t)
	auth.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(models.RegisterResponse{}, apierrors.FromResponse(400, []byte(`{"email":["taken"]}`), "Registration failed"))

	_, err := c.Register(context.Background(), models.RegisterRequest{})
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "taken", c.State().Error)
}

func TestLogout_ClearsEvenIfServerFails(t *testing.T) {
	t.Parallel()

	c, auth, sess := newCtx(t)
	auth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(models.AuthResponse{Access: "A", Refresh: "R"}, nil)
	auth.EXPECT().GetProfile(gomock.Any()).Return(user(1), nil)
	require.NoError(t, c.Login(context.Background(), models.Credentials{}))
	require.True(t, c.State().IsAuthenticated())

	auth.EXPECT().Logout(gomock.Any()).Return(errors.New("store unavailable"))
	sess.EXPECT().Clear(gomock.Any()).Return(nil)

	require.NoError(t, c.Logout(context.Background()))

	st := c.State()
	require.False(t, st.IsAuthenticated())
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.Empty(t, st.Error)
}

func TestSubscribe_Cancel(t *testing.T) {
	t.Parallel()

	c, _, _ := newCtx(t)

	calls := 0
	cancel := c.Subscribe(func(State) { calls++ })
	c.ClearError()
	cancel()
	c.ClearError()

	require.Equal(t, 1, calls)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "uninitialized", StatusUninitialized.String())
	require.Equal(t, "initializing", StatusInitializing.String())
	require.Equal(t, "authenticated", StatusAuthenticated.String())
	require.Equal(t, "unauthenticated", StatusUnauthenticated.String())
}
