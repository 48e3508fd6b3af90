package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	"github.com/pribylovaa/kelibe/internal/authstate"
	"github.com/pribylovaa/kelibe/internal/config"
	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/pribylovaa/kelibe/internal/pkg/redact"
	"github.com/pribylovaa/kelibe/internal/service"
	"github.com/pribylovaa/kelibe/internal/session"
	"github.com/pribylovaa/kelibe/internal/tokenstore"
)

var errUsage = errors.New("usage")

// app — зависимости команд: одна сессия и одно состояние на процесс.
type app struct {
	out     io.Writer
	session *session.Service
	auth    *service.Auth
	state   *authstate.Context
	err     error
}

func newApp(cfg *config.Config, store tokenstore.Store, out io.Writer) *app {
	a := &app{out: out}

	clientOpts := apiclient.Options{
		BaseURL:   cfg.Backend.BaseURL,
		UserAgent: cfg.Backend.UserAgent,
		Timeout:   cfg.Timeouts.Request,
	}
	refreshOpts := clientOpts
	refreshOpts.Timeout = cfg.Timeouts.Refresh

	ref, err := apiclient.NewRefresher(refreshOpts)
	if err != nil {
		a.err = err
		return a
	}

	a.session = session.New(store, ref)

	cl, err := apiclient.New(clientOpts, a.session)
	if err != nil {
		a.err = err
		return a
	}

	a.auth = service.NewAuth(cl, a.session)
	a.state = authstate.New(a.auth, a.session)

	return a
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"signup":     cmdSignup,
	"verify":     cmdVerify,
	"resend-otp": cmdResendOTP,
	"login":      cmdLogin,
	"google":     cmdGoogle,
	"whoami":     cmdWhoami,
	"refresh":    cmdRefresh,
	"validate":   cmdValidate,
	"logout":     cmdLogout,
}

func run(ctx context.Context, a *app, args []string) error {
	if a.err != nil {
		return a.err
	}
	if len(args) == 0 {
		return errUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	return cmd(ctx, a, args[1:])
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}

	for _, name := range required {
		if f := fs.Lookup(name); f == nil || strings.TrimSpace(f.Value.String()) == "" {
			return fmt.Errorf("%w: %s: --%s is required", errUsage, fs.Name(), name)
		}
	}

	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	var in models.RegisterRequest
	fs := newFlags("signup")
	fs.StringVar(&in.Email, "email", "", "")
	fs.StringVar(&in.Password, "password", os.Getenv("KELIBE_PASSWORD"), "")
	fs.StringVar(&in.FirstName, "first-name", "", "")
	fs.StringVar(&in.LastName, "last-name", "", "")
	if err := parse(fs, args, "email", "password"); err != nil {
		return err
	}
	in.Password2 = in.Password

	resp, err := a.state.Register(ctx, in)
	if err != nil {
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "registration successful, check your email for the verification code"
	}

	return a.print(map[string]string{"message": msg, "next": "kelibe verify --email " + in.Email + " --otp <code>"})
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	var email, otp string
	fs := newFlags("verify")
	fs.StringVar(&email, "email", "", "")
	fs.StringVar(&otp, "otp", "", "")
	if err := parse(fs, args, "email", "otp"); err != nil {
		return err
	}

	resp, err := a.auth.VerifyEmail(ctx, email, otp)
	if err != nil {
		return err
	}

	return a.print(resp)
}

func cmdResendOTP(ctx context.Context, a *app, args []string) error {
	var email string
	fs := newFlags("resend-otp")
	fs.StringVar(&email, "email", "", "")
	if err := parse(fs, args, "email"); err != nil {
		return err
	}

	resp, err := a.auth.ResendOTP(ctx, email)
	if err != nil {
		return err
	}

	return a.print(resp)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	var in models.Credentials
	fs := newFlags("login")
	fs.StringVar(&in.Email, "email", "", "")
	fs.StringVar(&in.Password, "password", os.Getenv("KELIBE_PASSWORD"), "")
	if err := parse(fs, args, "email", "password"); err != nil {
		return err
	}

	if err := a.state.Login(ctx, in); err != nil {
		return unverifiedHint(err)
	}

	return a.print(a.state.State().User)
}

func cmdGoogle(ctx context.Context, a *app, args []string) error {
	var credential string
	fs := newFlags("google")
	fs.StringVar(&credential, "credential", "", "")
	if err := parse(fs, args, "credential"); err != nil {
		return err
	}

	if err := a.state.GoogleAuth(ctx, credential); err != nil {
		return unverifiedHint(err)
	}

	return a.print(a.state.State().User)
}

// unverifiedHint дополняет ошибку неподтверждённого аккаунта следующим шагом.
func unverifiedHint(err error) error {
	if apierrors.KindOf(err) != apierrors.KindUnverified {
		return err
	}

	email := ""
	if vals := apierrors.FieldErrors(err)["email"]; len(vals) > 0 {
		email = vals[0]
	}

	return fmt.Errorf("%s; run: kelibe verify --email %s --otp <code>", apierrors.Message(err), email)
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	var claims bool
	fs := newFlags("whoami")
	fs.BoolVar(&claims, "claims", false, "")
	if err := parse(fs, args); err != nil {
		return err
	}

	st := a.state.Initialize(ctx)
	if !st.IsAuthenticated() {
		return &apierrors.Error{Kind: apierrors.KindAuthentication, Message: "not signed in"}
	}

	if !claims {
		return a.print(st.User)
	}

	access, err := a.session.AccessToken(ctx)
	if err != nil {
		return err
	}

	// Подпись не проверяется: claims показываются только для отладки.
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, mc); err != nil {
		return fmt.Errorf("access token is not a jwt: %w", err)
	}

	return a.print(map[string]any{"user": st.User, "claims": mc})
}

func cmdRefresh(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlags("refresh"), args); err != nil {
		return err
	}

	access, err := a.session.Refresh(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return &apierrors.Error{Kind: apierrors.KindAuthentication, Message: "not signed in", Err: err}
		}
		return err
	}

	return a.print(map[string]string{"access": redact.Fingerprint(access)})
}

// cmdValidate проверяет access-токен на бэкенде; невалидная сессия очищается.
func cmdValidate(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlags("validate"), args); err != nil {
		return err
	}

	ok, err := a.auth.ValidateToken(ctx)
	if err != nil {
		return err
	}

	return a.print(map[string]bool{"valid": ok})
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlags("logout"), args); err != nil {
		return err
	}

	if err := a.state.Logout(ctx); err != nil {
		return err
	}

	return a.print(map[string]string{"message": "signed out"})
}
