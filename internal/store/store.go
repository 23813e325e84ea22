package store

import (
	"context"
	"errors"

	"github.com/nhle/todo-assistant/internal/model"
)

// ErrNotFound is returned when a requested row does not exist or does not
// belong to the requesting user. Callers must not be able to distinguish the
// two cases.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for users, tasks, conversations,
// and messages. All task and conversation operations are owner-scoped.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// === Tasks ===

	CreateTask(ctx context.Context, userID, title, description string) (*model.Task, error)
	GetTasksByUser(ctx context.Context, userID string) ([]model.Task, error)
	GetTaskByID(ctx context.Context, taskID, userID string) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID, userID string, update model.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID, userID string) error
	SetTaskCompletion(ctx context.Context, taskID, userID string, completed bool) (*model.Task, error)

	// === Conversations ===

	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, userID, title string) error
	SetConversationFlow(ctx context.Context, conversationID, flow string, pendingTaskID *string) error

	// === Messages ===

	CreateMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) (*model.Message, error)
	GetConversationMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	GetLatestMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}
