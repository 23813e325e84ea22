package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-assistant/internal/auth"
	"github.com/nhle/todo-assistant/internal/chat"
	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/server"
	"github.com/nhle/todo-assistant/tests/testutil"
)

type cannedResponder struct{}

func (cannedResponder) Respond(_ context.Context, _ []model.Message, _ string) string {
	return "canned fallback reply"
}

type testEnv struct {
	srv   *httptest.Server
	token string
	user  model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := testutil.NewTestStore(t)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	dispatcher := chat.NewDispatcher(st, cannedResponder{}, zerolog.Nop())

	s := server.New(model.ServerConfig{Port: 0, CORSAllowedOrigins: []string{"*"}},
		st, tokens, dispatcher, zerolog.Nop())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv}
	env.register(t, "alice@example.com", "password123")
	env.login(t, "alice@example.com", "password123")
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) register(t *testing.T, email, password string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e.user = decodeBody[model.User](t, resp)
}

func (e *testEnv) login(t *testing.T, email, password string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	require.Equal(t, "bearer", body["token_type"])
	e.token = body["access_token"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "alice@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody[model.User](t, resp)
	assert.Equal(t, env.user.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	resp := env.do(t, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	base := fmt.Sprintf("/api/%s/tasks", env.user.ID)

	resp := env.do(t, http.MethodPost, base,
		map[string]string{"title": "Buy milk", "description": "oat"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decodeBody[model.Task](t, resp)
	assert.Equal(t, "Buy milk", task.Title)
	assert.False(t, task.Completed)

	resp = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decodeBody[[]model.Task](t, resp)
	require.Len(t, tasks, 1)

	resp = env.do(t, http.MethodPut, base+"/"+task.ID,
		map[string]string{"title": "Buy oat milk"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[model.Task](t, resp)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, "oat", updated.Description)

	resp = env.do(t, http.MethodPatch, base+"/"+task.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[model.Task](t, resp)
	assert.True(t, completed.Completed)

	// Completing again succeeds.
	resp = env.do(t, http.MethodPatch, base+"/"+task.ID+"/complete", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, base+"/"+task.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, base+"/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaskCreateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/%s/tasks", env.user.ID),
		map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserIDMismatchForbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/someone-else/tasks", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/someone-else/chat",
		map[string]string{"message": "show my tasks"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatRequiresMessage(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/%s/chat", env.user.ID),
		map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatUnknownConversation(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/%s/chat", env.user.ID),
		map[string]string{"message": "hi", "conversation_id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type chatResponseBody struct {
	ConversationID string            `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []any             `json:"tool_calls"`
	ToolResults    []chat.ToolResult `json:"tool_results"`
	Timestamp      string            `json:"timestamp"`
}

func TestChatTurnCreatesTaskAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	chatPath := fmt.Sprintf("/api/%s/chat", env.user.ID)

	resp := env.do(t, http.MethodPost, chatPath,
		map[string]string{"message": "add a task called Buy groceries"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[chatResponseBody](t, resp)

	assert.NotEmpty(t, body.ConversationID)
	assert.Contains(t, body.Response, "Buy groceries")
	require.Len(t, body.ToolResults, 1)
	assert.Equal(t, "create_task", body.ToolResults[0].Tool)
	assert.True(t, body.ToolResults[0].Success)
	assert.NotNil(t, body.ToolCalls)

	// The task is visible over the REST surface.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/%s/tasks", env.user.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decodeBody[[]model.Task](t, resp)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy groceries", tasks[0].Title)

	// Both turns were recorded.
	resp = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/%s/conversations/%s/messages", env.user.ID, body.ConversationID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := decodeBody[[]model.Message](t, resp)
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.NotEmpty(t, messages[1].Metadata["tool_results"])

	// The conversation shows up in the listing, titled by the first message.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/%s/conversations", env.user.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convs := decodeBody[[]model.Conversation](t, resp)
	require.Len(t, convs, 1)
	assert.Equal(t, "add a task called Buy groceries", convs[0].Title)
}

func TestChatFallsBackForSmallTalk(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/%s/chat", env.user.ID),
		map[string]string{"message": "how are you?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[chatResponseBody](t, resp)
	assert.Equal(t, "canned fallback reply", body.Response)
	assert.Empty(t, body.ToolResults)
}

func TestChatContinuesConversation(t *testing.T) {
	env := newTestEnv(t)
	chatPath := fmt.Sprintf("/api/%s/chat", env.user.ID)

	first := decodeBody[chatResponseBody](t, env.do(t, http.MethodPost, chatPath,
		map[string]string{"message": "add a task called Buy groceries"}))

	// The follow-up lands in the same conversation and becomes the
	// description via the pending flow.
	second := decodeBody[chatResponseBody](t, env.do(t, http.MethodPost, chatPath,
		map[string]string{
			"message":         "eggs and flour",
			"conversation_id": first.ConversationID,
		}))
	assert.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, second.ToolResults, 1)
	assert.Equal(t, "update_task", second.ToolResults[0].Tool)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/%s/tasks", env.user.ID), nil)
	tasks := decodeBody[[]model.Task](t, resp)
	require.Len(t, tasks, 1)
	assert.Equal(t, "eggs and flour", tasks[0].Description)
}
