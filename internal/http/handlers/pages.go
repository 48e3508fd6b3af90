package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/pribylovaa/kelibe/internal/service"
)

// page — данные страницы для фронта; вёрстка на стороне клиента.
type page struct {
	Page string `json:"page"`
	Data any    `json:"data,omitempty"`
}

type profilePage struct {
	User       *models.User       `json:"user"`
	Profile    models.UserProfile `json:"profile"`
	Categories []models.Category  `json:"categories"`
}

type categoryPage struct {
	Category  models.Category   `json:"category"`
	Questions []models.Question `json:"questions"`
}

func (h *Handlers) SignInPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, page{Page: "signin"})
}

func (h *Handlers) SignUpPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, page{Page: "signup"})
}

func (h *Handlers) ProfilePage(w http.ResponseWriter, r *http.Request) {
	sc := scope(r)

	prof, err := sc.Profile.Get(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cats, err := sc.Profile.Categories(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page{Page: "profile", Data: profilePage{
		User:       sc.State.State().User,
		Profile:    prof,
		Categories: cats,
	}})
}

// UpdateProfile — частичное обновление анкеты.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("invalid argument"))
		return
	}

	prof, err := scope(r).Profile.Update(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

func (h *Handlers) CategoryPage(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, invalidArgument(err.Error()))
		return
	}

	sc := scope(r)

	cat, err := sc.Profile.Category(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	qs, err := sc.Profile.Questions(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page{Page: "category", Data: categoryPage{Category: cat, Questions: qs}})
}

// SaveResponses сохраняет ответы категории одним запросом.
func (h *Handlers) SaveResponses(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, invalidArgument(err.Error()))
		return
	}

	var in struct {
		Responses []models.ResponseInput `json:"responses"`
	}
	if err := decodeStrict(r, &in); err != nil || len(in.Responses) == 0 {
		apierrors.WriteError(w, r, invalidArgument("responses are required"))
		return
	}

	cat, err := scope(r).Profile.BulkUpdate(r.Context(), models.BulkUpdateRequest{CategoryID: id, Responses: in.Responses})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

// ExplorePage — поиск кандидатов. Списочные фильтры принимаются и
// повторяющимися параметрами, и через запятую.
func (h *Handlers) ExplorePage(w http.ResponseWriter, r *http.Request) {
	res, err := scope(r).Explore.Users(r.Context(), filtersFromQuery(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page{Page: "explore", Data: res})
}

func filtersFromQuery(r *http.Request) models.UserFilters {
	q := r.URL.Query()

	split := func(key string) []string {
		var out []string
		for _, v := range q[key] {
			out = append(out, strings.Split(v, ",")...)
		}
		return out
	}

	f := models.UserFilters{
		Search:    q.Get("search"),
		Values:    split("values"),
		Interests: split("interests"),
		Location:  split("location"),
	}

	for k := range q {
		switch k {
		case "search", "values", "interests", "location":
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string][]string)
		}
		f.Extra[k] = split(k)
	}

	return f
}

func (h *Handlers) MatchesPage(w http.ResponseWriter, r *http.Request) {
	ms, err := scope(r).Explore.Matches(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page{Page: "matches", Data: ms})
}

func (h *Handlers) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, invalidArgument(err.Error()))
		return
	}

	var in models.UpdateMatchRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("invalid argument"))
		return
	}

	m, err := scope(r).Explore.UpdateMatch(r.Context(), id, in.Status)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) SettingsPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, page{Page: "settings", Data: scope(r).State.State().User})
}

// UpdateSettings — частичное обновление аккаунта (PATCH профиля пользователя).
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in models.UserPatch
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("invalid argument"))
		return
	}

	u, err := scope(r).Auth.UpdateProfile(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}
