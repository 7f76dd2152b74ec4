package model

import (
	"time"
)

// Session represents a chat session. Messages are append-only and ordered
// by creation time; CurrentSequenceID points at the sequence the assistant
// is currently working on, if any.
type Session struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	CurrentSequenceID *string   `json:"currentSequenceId,omitempty"`
	Messages          []Message `json:"messages"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
