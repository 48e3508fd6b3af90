package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pribylovaa/kelibe/internal/apiclient"
	"github.com/pribylovaa/kelibe/internal/models"
)

const (
	PathUserProfile     = "/profile/"
	PathCategories      = "/profile/categories/"
	PathResponses       = "/profile/responses/"
	PathBulkUpdate      = "/profile/responses/bulk_update/"
	categoryPathPattern = "/profile/categories/%d/"
	questionsPattern    = "/profile/categories/%d/questions/"
	responsePathPattern = "/profile/responses/%d/"
)

// Profile — анкета пользователя: категории вопросов и ответы.
type Profile struct {
	api *apiclient.Client
}

func NewProfile(api *apiclient.Client) *Profile {
	return &Profile{api: api}
}

func (p *Profile) Get(ctx context.Context) (models.UserProfile, error) {
	const op = "service.Profile.Get"

	var out models.UserProfile
	if err := p.api.Get(ctx, PathUserProfile, &out, apiclient.WithFallback("Failed to get profile")); err != nil {
		return models.UserProfile{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) Update(ctx context.Context, in models.UpdateProfileRequest) (models.UserProfile, error) {
	const op = "service.Profile.Update"

	var out models.UserProfile
	if err := p.api.Patch(ctx, PathUserProfile, in, &out, apiclient.WithFallback("Failed to update profile")); err != nil {
		return models.UserProfile{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Categories — список категорий (поле results пагинированного ответа).
func (p *Profile) Categories(ctx context.Context) ([]models.Category, error) {
	const op = "service.Profile.Categories"

	var out models.Page[models.Category]
	if err := p.api.Get(ctx, PathCategories, &out, apiclient.WithFallback("Failed to get categories")); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out.Results == nil {
		return []models.Category{}, nil
	}

	return out.Results, nil
}

func (p *Profile) Category(ctx context.Context, id int64) (models.Category, error) {
	const op = "service.Profile.Category"

	var out models.Category
	err := p.api.Get(ctx, fmt.Sprintf(categoryPathPattern, id), &out,
		apiclient.WithFallback("Failed to get category detail"))
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) Questions(ctx context.Context, categoryID int64) ([]models.Question, error) {
	const op = "service.Profile.Questions"

	var out []models.Question
	err := p.api.Get(ctx, fmt.Sprintf(questionsPattern, categoryID), &out,
		apiclient.WithFallback("Failed to get questions"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) Responses(ctx context.Context) ([]models.UserResponse, error) {
	const op = "service.Profile.Responses"

	var out []models.UserResponse
	if err := p.api.Get(ctx, PathResponses, &out, apiclient.WithFallback("Failed to get user responses")); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) CreateResponse(ctx context.Context, questionID int64, response json.RawMessage) (models.UserResponse, error) {
	const op = "service.Profile.CreateResponse"

	var out models.UserResponse
	in := models.ResponseInput{Question: questionID, Response: response}
	if err := p.api.Post(ctx, PathResponses, in, &out, apiclient.WithFallback("Failed to create response")); err != nil {
		return models.UserResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) UpdateResponse(ctx context.Context, responseID, questionID int64, response json.RawMessage) (models.UserResponse, error) {
	const op = "service.Profile.UpdateResponse"

	var out models.UserResponse
	in := models.ResponseInput{Question: questionID, Response: response}
	err := p.api.Patch(ctx, fmt.Sprintf(responsePathPattern, responseID), in, &out,
		apiclient.WithFallback("Failed to update response"))
	if err != nil {
		return models.UserResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (p *Profile) DeleteResponse(ctx context.Context, responseID int64) error {
	const op = "service.Profile.DeleteResponse"

	err := p.api.Delete(ctx, fmt.Sprintf(responsePathPattern, responseID),
		apiclient.WithFallback("Failed to delete response"))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// BulkUpdate сохраняет ответы категории одним запросом и возвращает
// категорию с пересчитанным прогрессом.
func (p *Profile) BulkUpdate(ctx context.Context, in models.BulkUpdateRequest) (models.Category, error) {
	const op = "service.Profile.BulkUpdate"

	var out models.Category
	if err := p.api.Post(ctx, PathBulkUpdate, in, &out, apiclient.WithFallback("Failed to bulk update responses")); err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ParseID разбирает идентификатор из пути (/profile/category/{id}).
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}

	return id, nil
}
