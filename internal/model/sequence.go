package model

import (
	"time"
)

// StepType is the outreach channel for a step.
type StepType string

const (
	StepTypeEmail    StepType = "email"
	StepTypeLinkedIn StepType = "linkedin"
	StepTypePhone    StepType = "phone"
	StepTypeOther    StepType = "other"
)

// ValidStepType reports whether t is one of the recognized channels.
func ValidStepType(t StepType) bool {
	switch t {
	case StepTypeEmail, StepTypeLinkedIn, StepTypePhone, StepTypeOther:
		return true
	}
	return false
}

// Sequence is a named, ordered outreach plan owned by a user.
type Sequence struct {
	ID               string    `json:"id"`
	UserID           string    `json:"-"`
	Name             string    `json:"name"`
	CompanyName      string    `json:"companyName"`
	RoleName         string    `json:"roleName"`
	CandidatePersona string    `json:"candidatePersona"`
	Steps            []Step    `json:"steps"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Step is one action within a sequence. StepNumber is 1-based and unique
// within its sequence; WaitTime is days since the previous step.
type Step struct {
	ID         string    `json:"id"`
	SequenceID string    `json:"-"`
	StepNumber int       `json:"stepNumber"`
	Type       StepType  `json:"type"`
	Content    string    `json:"content"`
	Subject    string    `json:"subject,omitempty"`
	Timing     string    `json:"timing,omitempty"`
	WaitTime   int       `json:"waitTime"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// CreateSequenceRequest is the request to create a sequence over the API.
type CreateSequenceRequest struct {
	Name             string `json:"name"`
	CompanyName      string `json:"companyName"`
	RoleName         string `json:"roleName"`
	CandidatePersona string `json:"candidatePersona"`
}

// UpdateSequenceRequest carries partial sequence updates. Pointers
// distinguish "absent" from "set to empty".
type UpdateSequenceRequest struct {
	Name             *string `json:"name,omitempty"`
	CompanyName      *string `json:"companyName,omitempty"`
	RoleName         *string `json:"roleName,omitempty"`
	CandidatePersona *string `json:"candidatePersona,omitempty"`
}

// UpdateStepRequest carries partial step updates.
type UpdateStepRequest struct {
	Content  *string `json:"content,omitempty"`
	Subject  *string `json:"subject,omitempty"`
	Type     *string `json:"type,omitempty"`
	Timing   *string `json:"timing,omitempty"`
	WaitTime *int    `json:"waitTime,omitempty"`
}
