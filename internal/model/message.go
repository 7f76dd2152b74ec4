// Package model defines data structures for the outreach platform.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCallStatus tracks the lifecycle of a tool call embedded in a message.
type ToolCallStatus string

const (
	ToolCallRequested ToolCallStatus = "requested"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
)

// ToolCallInfo is the tool-call metadata attached to an assistant message.
// It is never persisted standalone; it lives on the message that produced it.
type ToolCallInfo struct {
	Name   string         `json:"name"`
	Status ToolCallStatus `json:"status"`
	Result string         `json:"result,omitempty"`
}

// Message represents a single message in a session.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	ToolCall  *ToolCallInfo `json:"toolCall,omitempty"`
	CreatedAt time.Time     `json:"timestamp"`
}

// SendMessageRequest is the request to post a new user message.
type SendMessageRequest struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}
