package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/todo-assistant/internal/model"
)

// declineWords end the awaiting-detail flow without changes. Matched as
// whole words so titles like "Call Nora" don't trip the "no".
var declineWords = map[string]bool{
	"no": true, "nope": true, "skip": true, "nothing": true, "thanks": true,
}

// affirmWords keep the awaiting-detail flow open and re-prompt for the
// description.
var affirmWords = map[string]bool{
	"yes": true, "sure": true, "ok": true, "okay": true,
	"describe": true, "description": true, "detail": true, "details": true,
}

var (
	editTitlePattern = regexp.MustCompile(`(?i)^(?:name|title)\s*(?::|to|is|be)?\s+(.+)$`)
	editDescPattern  = regexp.MustCompile(`(?i)^(?:description|desc)\s*(?::|to|is|be)?\s+(.+)$`)
)

// resumeFlow continues a pending multi-turn flow with an utterance that
// matched no intent rule. A missing pending task clears the flow and falls
// back to the responder.
func (d *Dispatcher) resumeFlow(ctx context.Context, req Request, tasks []model.Task) Result {
	conv := req.Conversation
	if conv.PendingTaskID == nil {
		d.clearFlow(ctx, conv)
		return Result{
			Reply:  d.responder.Respond(ctx, req.History, req.Utterance),
			Intent: IntentNone,
		}
	}

	task, err := d.store.GetTaskByID(ctx, *conv.PendingTaskID, req.UserID)
	if err != nil {
		d.log.Warn().Err(err).
			Str("conversation_id", conv.ID).
			Str("task_id", *conv.PendingTaskID).
			Msg("pending flow task unavailable")
		d.clearFlow(ctx, conv)
		return Result{
			Reply:  "Sorry, I lost track of the task we were working on. What would you like to do?",
			Intent: IntentNone,
		}
	}

	switch conv.PendingFlow {
	case model.FlowAwaitingDetail:
		return d.resumeAwaitingDetail(ctx, req, task)
	case model.FlowAwaitingEditField:
		return d.resumeAwaitingEditField(ctx, req, task)
	default:
		d.clearFlow(ctx, conv)
		return Result{
			Reply:  d.responder.Respond(ctx, req.History, req.Utterance),
			Intent: IntentNone,
		}
	}
}

// resumeAwaitingDetail interprets the follow-up after a chat-created task:
// a decline leaves the task as is, an affirmation re-prompts, and anything
// else becomes the task description.
func (d *Dispatcher) resumeAwaitingDetail(
	ctx context.Context,
	req Request,
	task *model.Task,
) Result {
	if hasAnyWord(req.Utterance, declineWords) {
		d.clearFlow(ctx, req.Conversation)
		return Result{
			Reply:  fmt.Sprintf("Okay, **%s** is saved as is. Anything else?", task.Title),
			Intent: IntentNone,
		}
	}

	if hasAnyWord(req.Utterance, affirmWords) {
		return Result{
			Reply:  fmt.Sprintf("What description would you like to add to **%s**?", task.Title),
			Intent: IntentNone,
		}
	}

	description := strings.TrimSpace(req.Utterance)
	updated, err := d.store.UpdateTask(ctx, task.ID, req.UserID,
		model.TaskUpdate{Description: &description})
	if err != nil {
		d.log.Error().Err(err).Str("task_id", task.ID).Msg("adding description from chat")
		return Result{
			Reply:  fmt.Sprintf("Sorry, I couldn't update **%s** right now. Please try again.", task.Title),
			Intent: IntentNone,
			ToolResults: []ToolResult{{
				Tool:    ToolUpdateTask,
				Success: false,
				TaskID:  task.ID,
				Title:   task.Title,
				Message: "description could not be added",
			}},
		}
	}

	d.clearFlow(ctx, req.Conversation)
	return Result{
		Reply:  fmt.Sprintf("📝 Added that to **%s**. Anything else?", updated.Title),
		Intent: IntentNone,
		ToolResults: []ToolResult{{
			Tool:    ToolUpdateTask,
			Success: true,
			TaskID:  updated.ID,
			Title:   updated.Title,
			Message: fmt.Sprintf("Description added to task '%s'.", updated.Title),
		}},
	}
}

// resumeAwaitingEditField applies the field change named by the follow-up to
// the task selected in the preceding edit command.
func (d *Dispatcher) resumeAwaitingEditField(
	ctx context.Context,
	req Request,
	task *model.Task,
) Result {
	utterance := strings.TrimSpace(req.Utterance)
	lower := strings.ToLower(utterance)

	if m := editTitlePattern.FindStringSubmatch(utterance); m != nil {
		newTitle := strings.TrimSpace(m[1])
		return d.applyEditField(ctx, req, task,
			model.TaskUpdate{Title: &newTitle},
			fmt.Sprintf("✏️ Renamed **%s** to **%s**.", task.Title, newTitle),
		)
	}
	if m := editDescPattern.FindStringSubmatch(utterance); m != nil {
		desc := strings.TrimSpace(m[1])
		return d.applyEditField(ctx, req, task,
			model.TaskUpdate{Description: &desc},
			fmt.Sprintf("📝 Updated the description of **%s**.", task.Title),
		)
	}

	switch {
	case strings.Contains(lower, "not done") || strings.Contains(lower, "incomplete") ||
		strings.Contains(lower, "pending"):
		completed := false
		return d.applyEditField(ctx, req, task,
			model.TaskUpdate{Completed: &completed},
			fmt.Sprintf("**%s** is back to pending.", task.Title),
		)
	case strings.Contains(lower, "complete") || strings.Contains(lower, "done") ||
		strings.Contains(lower, "finished"):
		completed := true
		return d.applyEditField(ctx, req, task,
			model.TaskUpdate{Completed: &completed},
			fmt.Sprintf("🎉 **%s** marked as done!", task.Title),
		)
	}

	return Result{
		Reply: fmt.Sprintf(
			"I couldn't tell what to change on **%s**. You can say:\n"+
				"• title <new title>\n"+
				"• description <text>\n"+
				"• completed or pending",
			task.Title,
		),
		Intent: IntentNone,
	}
}

// applyEditField runs one UpdateTask for the edit flow, clearing the flow on
// success.
func (d *Dispatcher) applyEditField(
	ctx context.Context,
	req Request,
	task *model.Task,
	update model.TaskUpdate,
	successReply string,
) Result {
	updated, err := d.store.UpdateTask(ctx, task.ID, req.UserID, update)
	if err != nil {
		d.log.Error().Err(err).Str("task_id", task.ID).Msg("applying edit from chat")
		return Result{
			Reply:  fmt.Sprintf("Sorry, I couldn't update **%s** right now. Please try again.", task.Title),
			Intent: IntentNone,
			ToolResults: []ToolResult{{
				Tool:    ToolUpdateTask,
				Success: false,
				TaskID:  task.ID,
				Title:   task.Title,
				Message: "task could not be updated",
			}},
		}
	}

	d.clearFlow(ctx, req.Conversation)
	return Result{
		Reply:  successReply,
		Intent: IntentNone,
		ToolResults: []ToolResult{{
			Tool:    ToolUpdateTask,
			Success: true,
			TaskID:  updated.ID,
			Title:   updated.Title,
			Message: fmt.Sprintf("Task '%s' has been updated.", updated.Title),
		}},
	}
}

// hasAnyWord reports whether any whitespace- or punctuation-delimited word
// of the utterance is in the set.
func hasAnyWord(utterance string, words map[string]bool) bool {
	fields := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, f := range fields {
		if words[f] {
			return true
		}
	}
	return false
}
