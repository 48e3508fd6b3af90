// Входные/выходные модели REST-бэкенда, эндпойнты /auth/*.
package models

import "encoding/json"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type RegisterResponse struct {
	Access  string          `json:"access,omitempty"`
	Refresh string          `json:"refresh,omitempty"`
	User    *User           `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// AuthResponse — ответ /auth/token/ и /auth/google/.
// Error — ошибка внутри 2xx-ответа: строка или объект ошибок полей.
type AuthResponse struct {
	Access        string          `json:"access"`
	Refresh       string          `json:"refresh"`
	User          *User           `json:"user,omitempty"`
	EmailVerified *bool           `json:"email_verified,omitempty"`
	Error         json.RawMessage `json:"error,omitempty"`
}

// Pair возвращает пару токенов из ответа.
func (r *AuthResponse) Pair() TokenPair {
	return TokenPair{Access: r.Access, Refresh: r.Refresh}
}

// Unverified — ответ явно сообщает, что e-mail не подтверждён.
// Верхнеуровневый флаг приоритетнее флага пользователя.
func (r *AuthResponse) Unverified() bool {
	if r.EmailVerified != nil {
		return !*r.EmailVerified
	}

	return !r.User.Verified()
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse — новый access и, при ротации, новый refresh.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type GoogleAuthRequest struct {
	Credential string `json:"credential"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
