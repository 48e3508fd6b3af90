package models

// TokenPair — пара токенов клиентской сессии.
//
//   - Access — короткоживущий токен, прикладывается к каждому запросу;
//   - Refresh — долгоживущий токен, предъявляется для выпуска нового access.
//
// Пустое поле означает отсутствие токена.
type TokenPair struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// Empty — нет ни одного токена.
func (p TokenPair) Empty() bool { return p.Access == "" && p.Refresh == "" }

// Complete — есть оба токена.
func (p TokenPair) Complete() bool { return p.Access != "" && p.Refresh != "" }
