package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/store"
	"github.com/nhle/todo-assistant/tests/testutil"
)

type stubResponder struct {
	reply  string
	called int
}

func (s *stubResponder) Respond(_ context.Context, _ []model.Message, _ string) string {
	s.called++
	return s.reply
}

type dispatcherEnv struct {
	store      *store.SQLiteStore
	dispatcher *Dispatcher
	responder  *stubResponder
	user       *model.User
	conv       *model.Conversation
}

func newDispatcherEnv(t *testing.T) *dispatcherEnv {
	t.Helper()

	st := testutil.NewTestStore(t)
	responder := &stubResponder{reply: "just chatting"}
	dispatcher := NewDispatcher(st, responder, zerolog.Nop())

	ctx := context.Background()
	user, err := st.CreateUser(ctx, "test@example.com", "hash")
	require.NoError(t, err)
	conv, err := st.CreateConversation(ctx, user.ID, "")
	require.NoError(t, err)

	return &dispatcherEnv{
		store:      st,
		dispatcher: dispatcher,
		responder:  responder,
		user:       user,
		conv:       conv,
	}
}

func (e *dispatcherEnv) dispatch(utterance string) Result {
	return e.dispatcher.Dispatch(context.Background(), Request{
		UserID:       e.user.ID,
		Conversation: e.conv,
		Utterance:    utterance,
	})
}

func (e *dispatcherEnv) addTask(t *testing.T, title string) *model.Task {
	t.Helper()
	task, err := e.store.CreateTask(context.Background(), e.user.ID, title, "")
	require.NoError(t, err)
	return task
}

func TestDispatch_CreateTask(t *testing.T) {
	env := newDispatcherEnv(t)

	res := env.dispatch("add a task called Buy groceries")

	assert.Equal(t, IntentCreate, res.Intent)
	assert.Contains(t, res.Reply, "Buy groceries")
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, ToolCreateTask, res.ToolResults[0].Tool)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, "Buy groceries", res.ToolResults[0].Title)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy groceries", tasks[0].Title)

	// The conversation now waits for an optional description.
	assert.Equal(t, model.FlowAwaitingDetail, env.conv.PendingFlow)
	require.NotNil(t, env.conv.PendingTaskID)
	assert.Equal(t, tasks[0].ID, *env.conv.PendingTaskID)
}

func TestDispatch_CreateThenDescribe(t *testing.T) {
	env := newDispatcherEnv(t)

	env.dispatch("add a task called Buy groceries")
	res := env.dispatch("eggs, flour, and butter for the cake")

	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, ToolUpdateTask, res.ToolResults[0].Tool)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, model.FlowNone, env.conv.PendingFlow)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "eggs, flour, and butter for the cake", tasks[0].Description)
}

func TestDispatch_CreateThenDecline(t *testing.T) {
	env := newDispatcherEnv(t)

	env.dispatch("add a task called Buy groceries")
	res := env.dispatch("no thanks")

	assert.Empty(t, res.ToolResults)
	assert.Contains(t, res.Reply, "Buy groceries")
	assert.Equal(t, model.FlowNone, env.conv.PendingFlow)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Description)
}

func TestDispatch_ExplicitCommandOverridesPendingFlow(t *testing.T) {
	env := newDispatcherEnv(t)

	env.dispatch("add a task called Buy groceries")
	require.Equal(t, model.FlowAwaitingDetail, env.conv.PendingFlow)

	res := env.dispatch("show my tasks")

	assert.Equal(t, IntentList, res.Intent)
	assert.Contains(t, res.Reply, "Buy groceries")
	assert.Equal(t, model.FlowNone, env.conv.PendingFlow)

	// The flow clear is persisted, not just in memory.
	conv, err := env.store.GetConversation(context.Background(), env.conv.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FlowNone, conv.PendingFlow)
	assert.Nil(t, conv.PendingTaskID)
}

func TestDispatch_ListEmpty(t *testing.T) {
	env := newDispatcherEnv(t)

	res := env.dispatch("show my tasks")

	assert.Equal(t, IntentList, res.Intent)
	assert.Equal(t, "You don't have any tasks yet. Want to create one?", res.Reply)
	assert.Empty(t, res.ToolResults)
}

func TestDispatch_ListShowsCompletionState(t *testing.T) {
	env := newDispatcherEnv(t)
	done := env.addTask(t, "Buy milk")
	env.addTask(t, "Call mom")
	_, err := env.store.SetTaskCompletion(context.Background(), done.ID, env.user.ID, true)
	require.NoError(t, err)

	res := env.dispatch("list my tasks")

	assert.Contains(t, res.Reply, "1. ✓ Buy milk")
	assert.Contains(t, res.Reply, "2. ⬜ Call mom")
}

func TestDispatch_DeleteTask(t *testing.T) {
	env := newDispatcherEnv(t)
	task := env.addTask(t, "Buy milk")

	res := env.dispatch("delete task Buy milk")

	assert.Contains(t, res.Reply, "Buy milk")
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, ToolDeleteTask, res.ToolResults[0].Tool)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, task.ID, res.ToolResults[0].TaskID)

	_, err := env.store.GetTaskByID(context.Background(), task.ID, env.user.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDispatch_DeleteAmbiguousAsksWhich(t *testing.T) {
	env := newDispatcherEnv(t)
	env.addTask(t, "Buy milk")
	env.addTask(t, "Call mom")

	res := env.dispatch("delete the task xyz")

	assert.Contains(t, res.Reply, "Which one?")
	assert.Contains(t, res.Reply, "Buy milk")
	assert.Contains(t, res.Reply, "Call mom")
	assert.Empty(t, res.ToolResults)
}

func TestDispatch_CompleteTaskIsIdempotent(t *testing.T) {
	env := newDispatcherEnv(t)
	env.addTask(t, "Buy milk")

	first := env.dispatch("mark task Buy milk done")
	require.Len(t, first.ToolResults, 1)
	assert.True(t, first.ToolResults[0].Success)
	assert.Contains(t, first.Reply, "marked as done")

	second := env.dispatch("mark task Buy milk done")
	require.Len(t, second.ToolResults, 1)
	assert.True(t, second.ToolResults[0].Success)
	assert.Contains(t, second.Reply, "marked as done")

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
}

func TestDispatch_RenameNotCompletion(t *testing.T) {
	env := newDispatcherEnv(t)
	env.addTask(t, "Buy milk")

	res := env.dispatch("update Buy milk to Buy oat milk")

	assert.Equal(t, IntentEdit, res.Intent)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, ToolUpdateTask, res.ToolResults[0].Tool)
	assert.True(t, res.ToolResults[0].Success)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy oat milk", tasks[0].Title)
	assert.False(t, tasks[0].Completed)
}

func TestDispatch_EditFlowCompletesTask(t *testing.T) {
	env := newDispatcherEnv(t)
	env.addTask(t, "Buy milk")

	res := env.dispatch("edit task Buy milk")
	assert.Contains(t, res.Reply, "Buy milk")
	assert.Equal(t, model.FlowAwaitingEditField, env.conv.PendingFlow)

	res = env.dispatch("completed")
	require.Len(t, res.ToolResults, 1)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, model.FlowNone, env.conv.PendingFlow)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
}

func TestDispatch_EditFlowRenames(t *testing.T) {
	env := newDispatcherEnv(t)
	env.addTask(t, "Buy milk")

	env.dispatch("edit task Buy milk")
	res := env.dispatch("title Buy oat milk")

	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, ToolUpdateTask, res.ToolResults[0].Tool)
	assert.Equal(t, model.FlowNone, env.conv.PendingFlow)

	tasks, err := env.store.GetTasksByUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", tasks[0].Title)
}

func TestDispatch_FallbackForSmallTalk(t *testing.T) {
	env := newDispatcherEnv(t)

	res := env.dispatch("how was your weekend?")

	assert.Equal(t, IntentNone, res.Intent)
	assert.Equal(t, "just chatting", res.Reply)
	assert.Equal(t, 1, env.responder.called)
	assert.Empty(t, res.ToolResults)
}
