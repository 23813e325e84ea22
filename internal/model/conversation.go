package model

import "time"

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Pending-flow states for a conversation. The dispatcher sets a flow when it
// asks a follow-up question and clears it once the user answers (or moves on
// to an explicit new command).
const (
	FlowNone              = ""
	FlowAwaitingDetail    = "awaiting_detail"
	FlowAwaitingEditField = "awaiting_edit_field"
)

// Conversation is a chat thread owned by a user. PendingFlow and
// PendingTaskID record an in-progress multi-turn sub-dialogue so the next
// request does not have to re-derive it from message text.
type Conversation struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Title         string    `json:"title" db:"title"`
	PendingFlow   string    `json:"pending_flow" db:"pending_flow"`
	PendingTaskID *string   `json:"pending_task_id,omitempty" db:"pending_task_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a single entry in a conversation. Timestamps are non-decreasing
// within a conversation; insertion order is chronological order.
type Message struct {
	ID             string         `json:"id" db:"id"`
	ConversationID string         `json:"conversation_id" db:"conversation_id"`
	Role           string         `json:"role" db:"role"`
	Content        string         `json:"content" db:"content"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"-"`
	Timestamp      time.Time      `json:"timestamp" db:"timestamp"`
}
