package models

// User — пользователь, как его отдаёт GET /auth/profile/.
type User struct {
	ID            int64    `json:"id"`
	Email         string   `json:"email"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	EmailVerified *bool    `json:"email_verified,omitempty"`
	Profile       *Profile `json:"profile,omitempty"`
}

// Verified сообщает, подтверждён ли e-mail. Отсутствие поля не считается
// отказом: решение принимает бэкенд.
func (u *User) Verified() bool {
	return u == nil || u.EmailVerified == nil || *u.EmailVerified
}

// Profile — анкетные данные пользователя.
type Profile struct {
	PhoneNumber      string `json:"phone_number,omitempty"`
	Bio              string `json:"bio,omitempty"`
	Location         string `json:"location,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	BirthDate        string `json:"birth_date,omitempty"`
	Gender           string `json:"gender,omitempty"`
	LookingFor       string `json:"looking_for,omitempty"`
	MinAgePreference int    `json:"min_age_preference,omitempty"`
	MaxAgePreference int    `json:"max_age_preference,omitempty"`
	Age              int    `json:"age,omitempty"`
}

// UserPatch — частичное обновление пользователя (PATCH /auth/profile/).
type UserPatch struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
}
