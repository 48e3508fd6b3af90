package models

import (
	"encoding/json"
	"time"
)

// Типы вопросов анкеты.
const (
	QuestionShortAnswer    = "short_answer"
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionScale          = "scale"
	QuestionBoolean        = "boolean"
)

// Question — вопрос категории анкеты. Ответ произвольной формы, поэтому
// UserResponse хранится как сырой JSON.
type Question struct {
	ID           int64           `json:"id"`
	Category     int64           `json:"category"`
	Text         string          `json:"text"`
	QuestionType string          `json:"question_type"`
	Required     bool            `json:"required"`
	Order        int             `json:"order"`
	Options      []string        `json:"options,omitempty"`
	MinValue     *int            `json:"min_value,omitempty"`
	MaxValue     *int            `json:"max_value,omitempty"`
	UserResponse json.RawMessage `json:"user_response,omitempty"`
}

type UserResponse struct {
	ID        int64           `json:"id"`
	Question  int64           `json:"question"`
	Response  json.RawMessage `json:"response"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Category — категория анкеты с вопросами и прогрессом заполнения.
type Category struct {
	ID                   int64                   `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	Title                string                  `json:"title"`
	Description          string                  `json:"description"`
	Icon                 string                  `json:"icon,omitempty"`
	Color                string                  `json:"color,omitempty"`
	Order                int                     `json:"order"`
	CompletionPercentage float64                 `json:"completion_percentage"`
	Questions            []Question              `json:"questions,omitempty"`
	UserResponses        map[string]UserResponse `json:"user_responses,omitempty"`
}

// UserProfile — агрегированная анкета (/profile/).
type UserProfile struct {
	ID                   int64      `json:"id"`
	User                 int64      `json:"user"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Bio                  string     `json:"bio"`
	Avatar               string     `json:"avatar"`
	CompletionPercentage float64    `json:"completion_percentage"`
	Categories           []Category `json:"categories,omitempty"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// ResponseInput — один ответ в запросах create/update/bulk_update.
type ResponseInput struct {
	Question int64           `json:"question"`
	Response json.RawMessage `json:"response"`
}

type BulkUpdateRequest struct {
	CategoryID int64           `json:"category_id"`
	Responses  []ResponseInput `json:"responses"`
}

// Page — стандартная пагинированная выдача бэкенда.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
