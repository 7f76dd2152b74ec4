package model

import (
	"time"
)

// User represents a recruiter using the platform.
type User struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Company     string            `json:"company"`
	Role        string            `json:"role"`
	Preferences map[string]string `json:"preferences"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// UpdateUserRequest carries partial profile updates.
type UpdateUserRequest struct {
	Name        *string           `json:"name,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Company     *string           `json:"company,omitempty"`
	Role        *string           `json:"role,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}
