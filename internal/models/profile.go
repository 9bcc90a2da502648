package models

import (
	"strings"
	"time"
)

// UserProfile is the single local user. Its presence gates onboarding.
type UserProfile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileData is the user-editable part of the profile.
type ProfileData struct {
	FullName string `json:"fullName"`
	Company  string `json:"company"`
	Email    string `json:"email"`
}

// Validate checks that the profile has a name.
func (p *ProfileData) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return NewValidationError("fullName", "must not be empty")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return NewValidationError("email", "must be an email address")
	}
	return nil
}
