package models

import (
	"net/url"
	"sort"
	"strings"
)

// Candidate — карточка пользователя в ленте explore.
type Candidate struct {
	ID        int64            `json:"id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Email     string           `json:"email,omitempty"`
	Profile   CandidateProfile `json:"profile"`
}

type CandidateProfile struct {
	Avatar        *string        `json:"avatar"`
	Bio           string         `json:"bio"`
	Values        []string       `json:"values,omitempty"`
	OnlineStatus  string         `json:"online_status,omitempty"`
	Compatibility *Compatibility `json:"compatibility,omitempty"`
}

type Compatibility struct {
	Overall float64 `json:"overall"`
}

// UserFilters — фильтры explore. Списки уходят в query через запятую,
// пустые значения не передаются.
type UserFilters struct {
	Search    string
	Values    []string
	Interests []string
	Location  []string
	Extra     map[string][]string
}

// Query собирает query-строку в детерминированном порядке ключей.
func (f UserFilters) Query() url.Values {
	q := url.Values{}

	set := func(k string, vals ...string) {
		var nonEmpty []string
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}
		if len(nonEmpty) > 0 {
			q.Set(k, strings.Join(nonEmpty, ","))
		}
	}

	set("search", f.Search)
	set("values", f.Values...)
	set("interests", f.Interests...)
	set("location", f.Location...)

	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		set(k, f.Extra[k]...)
	}

	return q
}

// Статусы матча.
const (
	MatchPending  = "pending"
	MatchAccepted = "accepted"
	MatchRejected = "rejected"
)

type Match struct {
	ID            int64     `json:"id"`
	User          Candidate `json:"user"`
	Status        string    `json:"status"`
	Compatibility float64   `json:"compatibility,omitempty"`
	CreatedAt     string    `json:"created_at,omitempty"`
}

type UpdateMatchRequest struct {
	Status string `json:"status"`
}

type Answer struct {
	ID       int64  `json:"id"`
	Question int64  `json:"question"`
	Answer   string `json:"answer"`
}
