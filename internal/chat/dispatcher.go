package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/store"
)

// ToolResult records the outcome of one store mutation performed while
// handling an utterance. Every mutating branch emits one, success or not, so
// clients can reconcile local state without parsing reply text.
type ToolResult struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Tool names used in ToolResult entries.
const (
	ToolCreateTask   = "create_task"
	ToolUpdateTask   = "update_task"
	ToolDeleteTask   = "delete_task"
	ToolCompleteTask = "complete_task"
)

// Result is the outcome of dispatching one utterance.
type Result struct {
	Reply       string
	ToolResults []ToolResult
	Intent      Intent
}

// FallbackResponder produces a conversational reply when no intent rule
// matched the utterance. It never fails; downstream errors are folded into
// the reply text.
type FallbackResponder interface {
	Respond(ctx context.Context, history []model.Message, utterance string) string
}

// Request carries one utterance through the dispatcher together with the
// conversation it belongs to and the recent message history.
type Request struct {
	UserID       string
	Conversation *model.Conversation
	Utterance    string
	// History holds the most recent messages in chronological order,
	// excluding the current utterance.
	History []model.Message
}

// Dispatcher routes classified utterances to task operations against the
// store, manages pending multi-turn flows, and falls back to the responder
// for small talk.
type Dispatcher struct {
	store     store.Store
	responder FallbackResponder
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store and fallback
// responder.
func NewDispatcher(s store.Store, responder FallbackResponder, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     s,
		responder: responder,
		log:       logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch resolves one utterance to a reply. An explicit command always
// wins over a pending flow; the flow is consulted only when no intent rule
// matches, and an overriding command clears it.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	tasks, err := d.store.GetTasksByUser(ctx, req.UserID)
	if err != nil {
		d.log.Error().Err(err).Str("user_id", req.UserID).Msg("loading tasks for dispatch")
		return Result{
			Reply:  "Sorry, I couldn't load your tasks right now. Please try again.",
			Intent: IntentNone,
		}
	}

	intent := ClassifyIntent(req.Utterance)
	d.log.Debug().
		Str("conversation_id", req.Conversation.ID).
		Str("intent", string(intent)).
		Str("pending_flow", req.Conversation.PendingFlow).
		Msg("dispatching utterance")

	if req.Conversation.PendingFlow != model.FlowNone {
		// A completion word while we are asking which field to edit is the
		// answer to our own prompt, not a new command.
		answersEditPrompt := req.Conversation.PendingFlow == model.FlowAwaitingEditField &&
			intent == IntentComplete
		if intent == IntentNone || answersEditPrompt {
			return d.resumeFlow(ctx, req, tasks)
		}
		d.clearFlow(ctx, req.Conversation)
	}

	switch intent {
	case IntentCreate:
		return d.handleCreate(ctx, req)
	case IntentList:
		return d.handleList(tasks)
	case IntentDelete:
		return d.handleDelete(ctx, req, tasks)
	case IntentComplete:
		return d.handleComplete(ctx, req, tasks)
	case IntentEdit:
		return d.handleEdit(ctx, req, tasks)
	default:
		return Result{
			Reply:  d.responder.Respond(ctx, req.History, req.Utterance),
			Intent: IntentNone,
		}
	}
}

// handleCreate creates a task from the extracted title, or asks for a title
// when extraction fails. On success the conversation enters the
// awaiting-detail flow so a bare follow-up becomes the description.
func (d *Dispatcher) handleCreate(ctx context.Context, req Request) Result {
	title := ExtractTitle(req.Utterance)
	if title == "" {
		return Result{
			Reply: "Got it! What should I name the task? " +
				"(for example: Buy groceries, Call mom, Finish report)",
			Intent: IntentCreate,
		}
	}

	task, err := d.store.CreateTask(ctx, req.UserID, title, "")
	if err != nil {
		d.log.Error().Err(err).Str("title", title).Msg("creating task from chat")
		return Result{
			Reply:  "Sorry, I couldn't create that task right now. Please try again.",
			Intent: IntentCreate,
			ToolResults: []ToolResult{{
				Tool:    ToolCreateTask,
				Success: false,
				Title:   title,
				Message: "task could not be created",
			}},
		}
	}

	d.setFlow(ctx, req.Conversation, model.FlowAwaitingDetail, &task.ID)

	return Result{
		Reply: fmt.Sprintf(
			"✅ Task **%s** created!\nWant to add more details? "+
				"Tell me a description, or just say \"no\" to leave it as is.",
			task.Title,
		),
		Intent: IntentCreate,
		ToolResults: []ToolResult{{
			Tool:    ToolCreateTask,
			Success: true,
			TaskID:  task.ID,
			Title:   task.Title,
			Message: fmt.Sprintf("Task '%s' has been created successfully!", task.Title),
		}},
	}
}

// handleList renders the user's tasks as a numbered checklist. Read-only, so
// no tool results.
func (d *Dispatcher) handleList(tasks []model.Task) Result {
	if len(tasks) == 0 {
		return Result{
			Reply:  "You don't have any tasks yet. Want to create one?",
			Intent: IntentList,
		}
	}

	lines := make([]string, len(tasks))
	for i, t := range tasks {
		box := "⬜"
		if t.Completed {
			box = "✓"
		}
		lines[i] = fmt.Sprintf("%d. %s %s", i+1, box, t.Title)
	}
	return Result{
		Reply:  "Your tasks:\n" + strings.Join(lines, "\n"),
		Intent: IntentList,
	}
}

// handleDelete resolves the referenced task and deletes it, or asks which
// task was meant.
func (d *Dispatcher) handleDelete(ctx context.Context, req Request, tasks []model.Task) Result {
	target := d.resolveTask(req.Utterance, tasks)
	if target == nil {
		reply := "You don't have any tasks to delete."
		if len(tasks) > 0 {
			reply = fmt.Sprintf("Which one? Your tasks: %s", joinTitles(tasks))
		}
		return Result{Reply: reply, Intent: IntentDelete}
	}

	if err := d.store.DeleteTask(ctx, target.ID, req.UserID); err != nil {
		d.log.Error().Err(err).Str("task_id", target.ID).Msg("deleting task from chat")
		return Result{
			Reply:  fmt.Sprintf("Sorry, I couldn't delete **%s** right now. Please try again.", target.Title),
			Intent: IntentDelete,
			ToolResults: []ToolResult{{
				Tool:    ToolDeleteTask,
				Success: false,
				TaskID:  target.ID,
				Title:   target.Title,
				Message: "task could not be deleted",
			}},
		}
	}

	return Result{
		Reply:  fmt.Sprintf("🗑️ Task **%s** deleted.", target.Title),
		Intent: IntentDelete,
		ToolResults: []ToolResult{{
			Tool:    ToolDeleteTask,
			Success: true,
			TaskID:  target.ID,
			Title:   target.Title,
			Message: fmt.Sprintf("Task '%s' has been deleted.", target.Title),
		}},
	}
}

// handleComplete resolves the referenced task and marks it done. Completing
// an already-completed task succeeds with the same reply.
func (d *Dispatcher) handleComplete(ctx context.Context, req Request, tasks []model.Task) Result {
	target := d.resolveTask(req.Utterance, tasks)
	if target == nil {
		reply := "No tasks to mark complete yet."
		if len(tasks) > 0 {
			reply = fmt.Sprintf("Which task? You have: %s", joinTitles(tasks))
		}
		return Result{Reply: reply, Intent: IntentComplete}
	}

	task, err := d.store.SetTaskCompletion(ctx, target.ID, req.UserID, true)
	if err != nil {
		d.log.Error().Err(err).Str("task_id", target.ID).Msg("completing task from chat")
		return Result{
			Reply:  fmt.Sprintf("Sorry, I couldn't update **%s** right now. Please try again.", target.Title),
			Intent: IntentComplete,
			ToolResults: []ToolResult{{
				Tool:    ToolCompleteTask,
				Success: false,
				TaskID:  target.ID,
				Title:   target.Title,
				Message: "task could not be completed",
			}},
		}
	}

	return Result{
		Reply:  fmt.Sprintf("🎉 **%s** marked as done!", task.Title),
		Intent: IntentComplete,
		ToolResults: []ToolResult{{
			Tool:    ToolCompleteTask,
			Success: true,
			TaskID:  task.ID,
			Title:   task.Title,
			Message: fmt.Sprintf("Task '%s' has been marked as completed!", task.Title),
		}},
	}
}

// renamePattern matches "update <old> to <new>" style utterances. The old
// fragment may be empty when the user leans on context.
var renamePattern = regexp.MustCompile(
	`(?i)\b(?:edit|update|change|rename|modify|correct)\b\s+(?:the\s+)?(?:task\s+|todo\s+)?(.*?)\s*\b(?:to|into|as|become)\b\s+(.+)$`,
)

// renameDanglingPattern matches an edit utterance that names a rename cue
// but no new title.
var renameDanglingPattern = regexp.MustCompile(
	`(?i)\b(?:edit|update|change|rename|modify|correct)\b.*\b(?:to|into|as|become)\b\s*$`,
)

// handleEdit handles renames of the form "update X to Y" directly. A bare
// edit command resolves the task and enters the awaiting-edit-field flow so
// the next message can say what to change.
func (d *Dispatcher) handleEdit(ctx context.Context, req Request, tasks []model.Task) Result {
	if m := renamePattern.FindStringSubmatch(req.Utterance); m != nil {
		return d.handleRename(ctx, req, tasks, m[1], strings.TrimSpace(m[2]))
	}
	if renameDanglingPattern.MatchString(req.Utterance) {
		return Result{
			Reply:  "What should the new title be?",
			Intent: IntentEdit,
		}
	}

	target := d.resolveTask(req.Utterance, tasks)
	if target == nil {
		return Result{Reply: editClarifyReply(tasks), Intent: IntentEdit}
	}

	d.setFlow(ctx, req.Conversation, model.FlowAwaitingEditField, &target.ID)

	return Result{
		Reply: fmt.Sprintf(
			"Okay, editing **%s**. What would you like to change?\n"+
				"• title (say: title <new title>)\n"+
				"• description (say: description <text>)\n"+
				"• status (say: completed or pending)",
			target.Title,
		),
		Intent: IntentEdit,
	}
}

// handleRename applies an explicit "update <old> to <new>" rename. When the
// old fragment is empty the text before the rename cue serves as the search
// string.
func (d *Dispatcher) handleRename(
	ctx context.Context,
	req Request,
	tasks []model.Task,
	oldRef, newTitle string,
) Result {
	search := strings.TrimSpace(oldRef)
	if search == "" {
		// Everything before the rename cue becomes the search string.
		if loc := renamePattern.FindStringSubmatchIndex(req.Utterance); loc != nil {
			search = strings.TrimSpace(req.Utterance[:loc[2]])
		}
	}

	target := FindBestMatch(tasks, search)
	if target == nil {
		return Result{Reply: editClarifyReply(tasks), Intent: IntentEdit}
	}

	if strings.EqualFold(target.Title, newTitle) {
		return Result{
			Reply:  fmt.Sprintf("**%s** is already named that.", target.Title),
			Intent: IntentEdit,
		}
	}

	oldTitle := target.Title
	task, err := d.store.UpdateTask(ctx, target.ID, req.UserID, model.TaskUpdate{Title: &newTitle})
	if err != nil {
		d.log.Error().Err(err).Str("task_id", target.ID).Msg("renaming task from chat")
		return Result{
			Reply:  fmt.Sprintf("Sorry, I couldn't rename **%s** right now. Please try again.", oldTitle),
			Intent: IntentEdit,
			ToolResults: []ToolResult{{
				Tool:    ToolUpdateTask,
				Success: false,
				TaskID:  target.ID,
				Title:   oldTitle,
				Message: "task could not be renamed",
			}},
		}
	}

	return Result{
		Reply:  fmt.Sprintf("✏️ Renamed **%s** to **%s**.", oldTitle, task.Title),
		Intent: IntentEdit,
		ToolResults: []ToolResult{{
			Tool:    ToolUpdateTask,
			Success: true,
			TaskID:  task.ID,
			Title:   task.Title,
			Message: fmt.Sprintf("Task '%s' has been renamed to '%s'.", oldTitle, task.Title),
		}},
	}
}

// resolveTask extracts a title hint from the utterance and matches it
// against the user's tasks. When extraction yields nothing the whole
// utterance is the hint.
func (d *Dispatcher) resolveTask(utterance string, tasks []model.Task) *model.Task {
	hint := ExtractTitle(utterance)
	if hint == "" {
		hint = utterance
	}
	return FindBestMatch(tasks, hint)
}

// joinTitles renders the user's task titles as a comma-separated list for
// clarification replies.
func joinTitles(tasks []model.Task) string {
	titles := make([]string, len(tasks))
	for i, t := range tasks {
		titles[i] = t.Title
	}
	return strings.Join(titles, ", ")
}

func editClarifyReply(tasks []model.Task) string {
	if len(tasks) == 0 {
		return "No tasks to edit yet."
	}
	return fmt.Sprintf("Which task to edit? You have: %s", joinTitles(tasks))
}

func (d *Dispatcher) setFlow(
	ctx context.Context,
	conv *model.Conversation,
	flow string,
	pendingTaskID *string,
) {
	if err := d.store.SetConversationFlow(ctx, conv.ID, flow, pendingTaskID); err != nil {
		d.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("persisting conversation flow")
		return
	}
	conv.PendingFlow = flow
	conv.PendingTaskID = pendingTaskID
}

func (d *Dispatcher) clearFlow(ctx context.Context, conv *model.Conversation) {
	d.setFlow(ctx, conv, model.FlowNone, nil)
}
