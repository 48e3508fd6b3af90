// authstate — состояние авторизации клиента: текущий пользователь,
// флаг загрузки и последняя ошибка.
//
// Жизненный цикл:
//
//	Uninitialized -> Initializing -> {Authenticated, Unauthenticated}
//
// Login/GoogleAuth/Register выставляют Loading на время вызова.
// Authenticated тогда и только тогда, когда User != nil.
//
// Context безопасен для конкурентного использования; подписчики получают
// снимок состояния после каждого изменения.
package authstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
)

//go:generate mockgen -source=authstate.go -destination=../../mocks/authstate.go -package=mocks

// AuthService — операции бэкенда, которые нужны состоянию.
type AuthService interface {
	Login(ctx context.Context, in models.Credentials) (models.AuthResponse, error)
	GoogleAuth(ctx context.Context, credential string) (models.AuthResponse, error)
	Register(ctx context.Context, in models.RegisterRequest) (models.RegisterResponse, error)
	GetProfile(ctx context.Context) (models.User, error)
	Logout(ctx context.Context) error
}

// Session — хранилище токенов и их обновление.
type Session interface {
	HasTokens(ctx context.Context) bool
	Refresh(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Status — стадия жизненного цикла.
type Status uint8

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// State — снимок состояния. User не изменяется на месте, только заменяется.
type State struct {
	Status  Status
	User    *models.User
	Loading bool
	Error   string
}

func (s State) IsAuthenticated() bool { return s.User != nil }

// Settled — инициализация завершена.
func (s State) Settled() bool {
	return s.Status == StatusAuthenticated || s.Status == StatusUnauthenticated
}

type Context struct {
	auth    AuthService
	session Session

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

func New(auth AuthService, sess Session) *Context {
	return &Context{auth: auth, session: sess, subs: make(map[int]func(State))}
}

// State возвращает текущий снимок.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Subscribe регистрирует обработчик изменений; возвращает функцию отписки.
// Обработчик вызывается вне блокировки и не должен блокироваться надолго.
func (c *Context) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// update применяет изменение под блокировкой и уведомляет подписчиков.
func (c *Context) update(fn func(*State)) State {
	c.mu.Lock()
	fn(&c.state)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)

	return snap
}

func (c *Context) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}

	return c.state, subs
}

func notify(subs []func(State), snap State) {
	for _, s := range subs {
		s(snap)
	}
}

// Initialize восстанавливает сессию по сохранённым токенам. Выполняется
// один раз: повторные вызовы возвращают текущее состояние, не дожидаясь
// идущей инициализации (вызывающий видит StatusInitializing).
//
//  1. токенов нет — Unauthenticated;
//  2. профиль получен — Authenticated;
//  3. иначе один refresh и одна повторная попытка профиля;
//     любая дальнейшая ошибка — токены очищаются, Unauthenticated.
func (c *Context) Initialize(ctx context.Context) State {
	const op = "authstate.Context.Initialize"

	c.mu.Lock()
	if c.state.Status != StatusUninitialized {
		snap := c.state
		c.mu.Unlock()
		return snap
	}
	c.state.Status = StatusInitializing
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)

	l := logctx.Op(ctx, op)

	if !c.session.HasTokens(ctx) {
		return c.settle(nil)
	}

	user, err := c.auth.GetProfile(ctx)
	if err == nil {
		return c.settle(&user)
	}
	l.Info("session_restore_retry", slog.String("err", err.Error()))

	if _, err := c.session.Refresh(ctx); err != nil {
		l.Info("session_restore_failed", slog.String("stage", "refresh"), slog.String("err", err.Error()))
		c.clearTokens(ctx)
		return c.settle(nil)
	}

	user, err = c.auth.GetProfile(ctx)
	if err != nil {
		l.Info("session_restore_failed", slog.String("stage", "profile"), slog.String("err", err.Error()))
		c.clearTokens(ctx)
		return c.settle(nil)
	}

	return c.settle(&user)
}

func (c *Context) settle(user *models.User) State {
	return c.update(func(s *State) {
		s.User = user
		s.Loading = false
		if user != nil {
			s.Status = StatusAuthenticated
		} else {
			s.Status = StatusUnauthenticated
		}
	})
}

// Login — вход по e-mail и паролю.
//
// Неподтверждённый e-mail возвращает ошибку класса apierrors.KindUnverified
// (errors.Is(err, apierrors.ErrUnverifiedAccount)) и не выставляет State.Error:
// вызывающий ведёт пользователя на ввод OTP, а не показывает сбой.
func (c *Context) Login(ctx context.Context, in models.Credentials) error {
	return c.authenticate(ctx, func(ctx context.Context) (models.AuthResponse, error) {
		return c.auth.Login(ctx, in)
	})
}

// GoogleAuth — вход по Google credential, симметричен Login.
func (c *Context) GoogleAuth(ctx context.Context, credential string) error {
	return c.authenticate(ctx, func(ctx context.Context) (models.AuthResponse, error) {
		return c.auth.GoogleAuth(ctx, credential)
	})
}

func (c *Context) authenticate(ctx context.Context, call func(context.Context) (models.AuthResponse, error)) error {
	c.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	resp, err := call(ctx)
	if err != nil {
		// неудачный повторный вход завершает прежнюю сессию
		if c.State().User != nil {
			c.clearTokens(ctx)
			c.update(func(s *State) {
				s.User = nil
				s.Status = StatusUnauthenticated
			})
		}
		c.fail(err)
		return err
	}

	user, err := c.auth.GetProfile(ctx)
	switch {
	case err == nil:
	case resp.User != nil:
		logctx.From(ctx).Warn("profile_fetch_failed", slog.String("err", err.Error()))
		user = *resp.User
	default:
		c.clearTokens(ctx)
		c.fail(err)
		return err
	}

	c.update(func(s *State) {
		s.User = &user
		s.Status = StatusAuthenticated
		s.Loading = false
		s.Error = ""
	})

	return nil
}

// fail снимает Loading и сохраняет сообщение ошибки; неподтверждённый
// аккаунт ошибкой состояния не считается.
func (c *Context) fail(err error) {
	msg := apierrors.Message(err)
	if errors.Is(err, apierrors.ErrUnverifiedAccount) {
		msg = ""
	}

	c.update(func(s *State) {
		s.Loading = false
		s.Error = msg
	})
}

// Register регистрирует пользователя, но не авторизует его:
// дальше вызывающий ведёт на подтверждение e-mail.
func (c *Context) Register(ctx context.Context, in models.RegisterRequest) (models.RegisterResponse, error) {
	c.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	out, err := c.auth.Register(ctx, in)
	if err != nil {
		c.fail(err)
		return models.RegisterResponse{}, err
	}

	c.update(func(s *State) { s.Loading = false })

	return out, nil
}

// Logout сразу очищает пользователя и ошибку, затем удаляет токены и
// best-effort уведомляет бэкенд. Локальный выход не зависит от ответа сервера.
func (c *Context) Logout(ctx context.Context) error {
	c.update(func(s *State) {
		s.User = nil
		s.Error = ""
		s.Loading = false
		s.Status = StatusUnauthenticated
	})

	if err := c.auth.Logout(ctx); err != nil {
		logctx.From(ctx).Warn("logout_failed", slog.String("err", err.Error()))
		return c.session.Clear(ctx)
	}

	return nil
}

func (c *Context) ClearError() {
	c.update(func(s *State) { s.Error = "" })
}

func (c *Context) clearTokens(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		logctx.From(ctx).Warn("token_store_clear_failed", slog.String("err", err.Error()))
	}
}
