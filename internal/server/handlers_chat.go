package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/todo-assistant/internal/chat"
	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/store"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	ConversationID string            `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []any             `json:"tool_calls"`
	ToolResults    []chat.ToolResult `json:"tool_results"`
	Timestamp      string            `json:"timestamp"`
}

// handleListConversations returns the user's conversations, newest first.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	convs, err := s.store.GetUserConversations(r.Context(), user.ID)
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	s.respondJSON(w, http.StatusOK, convs)
}

// handleConversationMessages returns a conversation's messages in
// chronological order. Ownership is checked before reading messages.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	conv, err := s.store.GetConversation(r.Context(), r.PathValue("conversation_id"), user.ID)
	if err != nil {
		s.respondStoreError(w, err, "Conversation not found")
		return
	}

	messages, err := s.store.GetConversationMessages(r.Context(), conv.ID)
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	s.respondJSON(w, http.StatusOK, messages)
}

// handleChat runs one chat turn: record the user message, dispatch it, record
// the assistant reply with its tool results, and return the reply. The
// endpoint stays a conversational success even when a task mutation inside
// the turn fails; the failure is reported in the reply and tool results.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req chatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	var (
		conv *model.Conversation
		err  error
	)
	if req.ConversationID != "" {
		conv, err = s.store.GetConversation(r.Context(), req.ConversationID, user.ID)
		if err != nil {
			s.respondStoreError(w, err, "Conversation not found")
			return
		}
	} else {
		conv, err = s.store.CreateConversation(r.Context(), user.ID, "")
		if err != nil {
			s.respondStoreError(w, err, "")
			return
		}
	}

	// History is loaded before the current utterance is appended so the
	// dispatcher and fallback prompt see only prior turns.
	history, err := s.store.GetLatestMessages(r.Context(), conv.ID, 10)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("loading chat history")
		history = nil
	}

	if _, err := s.store.CreateMessage(
		r.Context(), conv.ID, model.RoleUser, req.Message,
		map[string]any{"type": "user_input"},
	); err != nil {
		s.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("recording user message")
	}

	result := s.dispatcher.Dispatch(r.Context(), chat.Request{
		UserID:       user.ID,
		Conversation: conv,
		Utterance:    req.Message,
		History:      history,
	})

	toolResults := result.ToolResults
	if toolResults == nil {
		toolResults = []chat.ToolResult{}
	}

	timestamp := time.Now().UTC()
	assistantMsg, err := s.store.CreateMessage(
		r.Context(), conv.ID, model.RoleAssistant, result.Reply,
		map[string]any{"intent": string(result.Intent), "tool_results": toolResults},
	)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("recording assistant message")
	} else {
		timestamp = assistantMsg.Timestamp
	}

	if req.ConversationID == "" {
		s.maybeTitleConversation(r, conv, req.Message)
	}

	s.respondJSON(w, http.StatusOK, chatResponse{
		ConversationID: conv.ID,
		Response:       result.Reply,
		ToolCalls:      []any{},
		ToolResults:    toolResults,
		Timestamp:      timestamp.Format(time.RFC3339),
	})
}

// maybeTitleConversation renames a fresh conversation after its first user
// message, truncated to keep list views tidy. Best effort.
func (s *Server) maybeTitleConversation(r *http.Request, conv *model.Conversation, message string) {
	title := strings.TrimSpace(message)
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	if title == "" {
		return
	}
	if err := s.store.UpdateConversationTitle(r.Context(), conv.ID, conv.UserID, title); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("titling conversation")
	}
}
