// errors описывает таксономию ошибок клиента REST-бэкенда и
// стандартизирует ответы об ошибках HTTP-слоя шлюза.
//
// Классы ошибок:
//   - Validation — 4xx с ошибками полей (показываются у поля формы или баннером);
//   - Authentication — 401 (локально обрабатывается refresh-and-retry);
//   - Unverified — учётные данные верны, но e-mail не подтверждён;
//   - Network — ответа нет вовсе (обрыв, DNS, таймаут);
//   - Server — 5xx, автоматически не повторяется.
//
// Сообщение для пользователя извлекается из тела ответа бэкенда:
// сначала поле detail, затем первое сообщение первого поля (в порядке документа),
// затем дефолт конкретной операции.
package errors

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Kind — класс ошибки.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindUnverified
	KindNetwork
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindUnverified:
		return "unverified"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

var (
	// ErrValidation — бэкенд отклонил входные данные (4xx, кроме 401).
	ErrValidation = stderrors.New("validation error")
	// ErrAuthentication — 401 после попытки refresh-and-retry или без неё.
	ErrAuthentication = stderrors.New("authentication error")
	// ErrUnverifiedAccount — e-mail аккаунта не подтверждён, нужен OTP.
	ErrUnverifiedAccount = stderrors.New("email is not verified")
	// ErrNetwork — ответ от бэкенда не получен.
	ErrNetwork = stderrors.New("network error")
	// ErrServer — 5xx от бэкенда.
	ErrServer = stderrors.New("server error")
)

// Error — нормализованная ошибка бэкенда.
type Error struct {
	Kind    Kind
	Status  int // HTTP-статус ответа; 0, если ответа не было
	Code    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с sentinel-значением её класса.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindUnverified:
		return ErrUnverifiedAccount
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	default:
		return nil
	}
}

// KindOf возвращает класс ошибки или KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// FieldErrors возвращает ошибки полей, если они есть.
func FieldErrors(err error) map[string][]string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Fields
	}

	return nil
}

// Message — текст для пользователя: Message нормализованной ошибки
// без префиксов обёрток, иначе err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Error()
	}

	return err.Error()
}

// FromResponse строит ошибку по статусу и телу ответа бэкенда.
func FromResponse(status int, body []byte, fallback string) *Error {
	p := parsePayload(body)

	msg := p.detail
	if msg == "" {
		msg = p.first
	}
	if msg == "" {
		msg = fallback
	}

	e := &Error{
		Status:  status,
		Code:    p.code,
		Message: msg,
		Fields:  p.fields,
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case status >= 400 && status < 500 && p.unverified:
		e.Kind = KindUnverified
	case status >= 400 && status < 500:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
		// Тексты 5xx не показываем пользователю.
		e.Message = fallback
	}

	return e
}

// Network оборачивает транспортную ошибку (ответ не получен).
func Network(err error, fallback string) *Error {
	return &Error{Kind: KindNetwork, Message: fallback, Err: err}
}

// Unverified — логин прошёл на уровне учётных данных, но e-mail не подтверждён.
func Unverified(email string) *Error {
	return &Error{
		Kind:    KindUnverified,
		Status:  http.StatusForbidden,
		Code:    "email_unverified",
		Message: "please verify your email address",
		Fields:  map[string][]string{"email": {email}},
	}
}

// payload — результат разбора тела ошибки.
type payload struct {
	detail     string
	first      string
	code       string
	unverified bool
	fields     map[string][]string
}

var unverifiedCodes = map[string]bool{
	"email_not_verified": true,
	"email_unverified":   true,
	"unverified":         true,
}

// parsePayload разбирает JSON-объект потоково, чтобы сохранить порядок полей.
// Не-JSON тело (например, HTML-страница прокси) даёт пустой payload.
func parsePayload(body []byte) payload {
	var p payload

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return p
	}

	if s, ok := tok.(string); ok {
		// Бэкенд иногда отдаёт ошибку голой строкой.
		p.detail = s
		return p
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return p
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return p
		}
		key, _ := kt.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return p
		}

		switch key {
		case "detail":
			if s := firstMessage(raw); s != "" {
				p.detail = s
			}
			continue
		case "code":
			var s string
			if json.Unmarshal(raw, &s) == nil {
				p.code = s
				if unverifiedCodes[s] {
					p.unverified = true
				}
			}
			continue
		case "email_verified":
			var b bool
			if json.Unmarshal(raw, &b) == nil && !b {
				p.unverified = true
			}
			continue
		}

		msgs := messages(raw)
		if len(msgs) == 0 {
			continue
		}

		if p.fields == nil {
			p.fields = make(map[string][]string)
		}
		p.fields[key] = msgs

		if p.first == "" {
			p.first = msgs[0]
		}
	}

	if !p.unverified {
		low := strings.ToLower(p.detail)
		p.unverified = strings.Contains(low, "not verified") || strings.Contains(low, "verify your email")
	}

	return p
}

// messages извлекает строки из значения поля: строка, массив строк
// или вложенный объект (берутся сообщения его полей по порядку).
func messages(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}

	if nested := parsePayload(raw); nested.detail != "" || nested.first != "" {
		if nested.detail != "" {
			return []string{nested.detail}
		}
		return []string{nested.first}
	}

	return nil
}

func firstMessage(raw json.RawMessage) string {
	if msgs := messages(raw); len(msgs) > 0 {
		return msgs[0]
	}

	return ""
}

// APIError — единый формат ошибки шлюза для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
// Fields — ошибки конкретных полей формы.
// Next — куда фронту перейти дальше (например, на ввод OTP).
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Next      string              `json:"next,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку клиента в HTTP-статус и ответ для фронта.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - отмена/дедлайн контекста — 499/504;
//   - *Error — маппинг по классу (validation сохраняет 4xx-статус бэкенда);
//   - прочее — 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	internal := ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}

	if err == nil {
		return http.StatusInternalServerError, internal
	}

	var e *Error
	isClientErr := stderrors.As(err, &e)

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{Error: APIError{Code: "canceled", Message: "canceled"}}
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: APIError{Code: "deadline_exceeded", Message: "deadline exceeded"}}
	case !isClientErr:
		return http.StatusInternalServerError, internal
	}

	switch e.Kind {
	case KindValidation:
		status, code := validationStatus(e.Status)
		return status, ErrorResponse{Error: APIError{Code: code, Message: e.Message, Fields: e.Fields}}
	case KindAuthentication:
		return http.StatusUnauthorized, ErrorResponse{Error: APIError{Code: "unauthenticated", Message: "unauthenticated"}}
	case KindUnverified:
		return http.StatusForbidden, ErrorResponse{Error: APIError{Code: "email_unverified", Message: e.Message}}
	case KindNetwork:
		return http.StatusServiceUnavailable, ErrorResponse{Error: APIError{Code: "unavailable", Message: "service unavailable"}}
	case KindServer:
		return http.StatusBadGateway, ErrorResponse{Error: APIError{Code: "upstream_error", Message: "upstream error"}}
	default:
		return http.StatusInternalServerError, internal
	}
}

// validationStatus сохраняет исходный 4xx и подбирает стабильный код.
func validationStatus(status int) (int, string) {
	switch status {
	case http.StatusForbidden:
		return status, "permission_denied"
	case http.StatusNotFound:
		return status, "not_found"
	case http.StatusConflict:
		return status, "already_exists"
	case http.StatusTooManyRequests:
		return status, "resource_exhausted"
	}

	if status < 400 || status >= 500 {
		status = http.StatusBadRequest
	}

	return status, "invalid_argument"
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	writeResponse(w, r, status, resp)
}

// WriteErrorNext — как WriteError, но подсказывает фронту следующий шаг.
func WriteErrorNext(w http.ResponseWriter, r *http.Request, err error, next string) {
	status, resp := ToHTTP(err)
	resp.Error.Next = next
	writeResponse(w, r, status, resp)
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
