package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	apierrors "github.com/pribylovaa/kelibe/internal/errors"
	"github.com/pribylovaa/kelibe/internal/models"
)

const (
	PathUsers          = "/auth/users/"
	PathMatches        = "/accounts/matches/"
	PathAnswers        = "/accounts/answers/"
	matchUpdatePattern = "/accounts/matches/%d/update/"
)

// Explore — лента кандидатов, матчи и ответы для совместимости.
// Совместимость считает бэкенд, клиент только отображает результат.
type Explore struct {
	api *apiclient.Client
}

func NewExplore(api *apiclient.Client) *Explore {
	return &Explore{api: api}
}

// Users — страница ленты с фильтрами.
func (e *Explore) Users(ctx context.Context, f models.UserFilters) (models.Page[models.Candidate], error) {
	const op = "service.Explore.Users"

	var out models.Page[models.Candidate]
	err := e.api.Get(ctx, PathUsers, &out,
		apiclient.WithQuery(f.Query()),
		apiclient.WithFallback("Failed to load users"))
	if err != nil {
		return models.Page[models.Candidate]{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (e *Explore) Matches(ctx context.Context) ([]models.Match, error) {
	const op = "service.Explore.Matches"

	var out []models.Match
	if err := e.api.Get(ctx, PathMatches, &out, apiclient.WithFallback("Failed to load matches")); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateMatch принимает или отклоняет матч.
func (e *Explore) UpdateMatch(ctx context.Context, id int64, status string) (models.Match, error) {
	const op = "service.Explore.UpdateMatch"

	switch status {
	case models.MatchAccepted, models.MatchRejected, models.MatchPending:
	default:
		return models.Match{}, fmt.Errorf("%s: %w", op, &apierrors.Error{
			Kind:    apierrors.KindValidation,
			Status:  http.StatusBadRequest,
			Message: "unknown match status",
			Fields:  map[string][]string{"status": {status}},
		})
	}

	var out models.Match
	err := e.api.Post(ctx, fmt.Sprintf(matchUpdatePattern, id), models.UpdateMatchRequest{Status: status}, &out,
		apiclient.WithFallback("Failed to update match"))
	if err != nil {
		return models.Match{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (e *Explore) Answers(ctx context.Context) ([]models.Answer, error) {
	const op = "service.Explore.Answers"

	var out []models.Answer
	if err := e.api.Get(ctx, PathAnswers, &out, apiclient.WithFallback("Failed to load answers")); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
