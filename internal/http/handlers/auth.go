package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/http/middleware"
	"github.com/pribylovaa/kelibe/internal/models"
	logctx "github.com/pribylovaa/kelibe/internal/pkg/log"
)

// signedIn — ответ успешного входа: пользователь и куда перейти дальше.
type signedIn struct {
	User *models.User `json:"user"`
	Next string       `json:"next"`
}

type nextStep struct {
	Message string `json:"message,omitempty"`
	Next    string `json:"next"`
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("invalid argument"))
		return
	}

	resp, err := scope(r).State.Register(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, nextStep{Message: resp.Message, Next: h.verifyPath(in.Email)})
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("invalid argument"))
		return
	}

	sc := scope(r)
	h.finishSignIn(w, r, in.Email, sc.State.Login(r.Context(), in))
}

func (h *Handlers) Google(w http.ResponseWriter, r *http.Request) {
	var in models.GoogleAuthRequest
	if err := decodeStrict(r, &in); err != nil || in.Credential == "" {
		apierrors.WriteError(w, r, invalidArgument("credential is required"))
		return
	}

	sc := scope(r)
	h.finishSignIn(w, r, "", sc.State.GoogleAuth(r.Context(), in.Credential))
}

// finishSignIn отвечает на вход: неподтверждённый аккаунт уводим на
// подтверждение e-mail, успешный вход — на запомненную страницу.
func (h *Handlers) finishSignIn(w http.ResponseWriter, r *http.Request, email string, err error) {
	if err != nil {
		if apierrors.KindOf(err) == apierrors.KindUnverified {
			if email == "" {
				if vals := apierrors.FieldErrors(err)["email"]; len(vals) > 0 {
					email = vals[0]
				}
			}
			apierrors.WriteErrorNext(w, r, err, h.verifyPath(email))
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	next := h.routes.Landing
	if saved := middleware.Remembered(r, h.routes.SignIn); saved != "" {
		next = saved
	}
	middleware.Forget(w, h.routes.Insecure)

	writeJSON(w, http.StatusOK, signedIn{User: scope(r).State.State().User, Next: next})
}

func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var in models.VerifyEmailRequest
	if err := decodeStrict(r, &in); err != nil || in.Email == "" || in.OTP == "" {
		apierrors.WriteError(w, r, invalidArgument("email and otp are required"))
		return
	}

	resp, err := scope(r).Auth.VerifyEmail(r.Context(), in.Email, in.OTP)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nextStep{Message: resp.Message, Next: h.routes.SignIn})
}

func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var in models.ResendOTPRequest
	if err := decodeStrict(r, &in); err != nil || in.Email == "" {
		apierrors.WriteError(w, r, invalidArgument("email is required"))
		return
	}

	resp, err := scope(r).Auth.ResendOTP(r.Context(), in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout всегда завершает сессию: ошибка бэкенда только логируется.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := scope(r).State.Logout(r.Context()); err != nil {
		logctx.From(r.Context()).Warn("logout_incomplete", slog.String("err", err.Error()))
	}

	writeJSON(w, http.StatusOK, nextStep{Next: h.routes.SignIn})
}

// Me — текущий пользователь по сессии запроса.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	st := scope(r).State.Initialize(r.Context())
	if !st.IsAuthenticated() {
		apierrors.WriteError(w, r, &apierrors.Error{Kind: apierrors.KindAuthentication, Status: http.StatusUnauthorized})
		return
	}

	writeJSON(w, http.StatusOK, st.User)
}
