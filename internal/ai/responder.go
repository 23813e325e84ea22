package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/todo-assistant/internal/model"
)

// historyLimit caps how many recent messages feed the prompt.
const historyLimit = 10

// Responder turns an unmatched utterance plus recent history into a
// conversational reply. Generation failures never propagate; they become an
// apologetic reply so the conversation can continue.
type Responder struct {
	gen Generator
	now func() time.Time
	log zerolog.Logger
}

// NewResponder creates a Responder backed by the given generator.
func NewResponder(gen Generator, logger zerolog.Logger) *Responder {
	return &Responder{
		gen: gen,
		now: time.Now,
		log: logger.With().Str("component", "responder").Logger(),
	}
}

// Respond builds the prompt and calls the generator. Always returns a reply.
func (r *Responder) Respond(
	ctx context.Context,
	history []model.Message,
	utterance string,
) string {
	prompt := BuildPrompt(history, utterance, r.now())

	reply, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.log.Warn().Err(err).Msg("fallback generation failed")
		return "Sorry, I'm having trouble thinking of a reply right now. " +
			"I can still manage your tasks: try \"add a task\", \"show my tasks\", " +
			"or \"mark <task> done\"."
	}
	if strings.TrimSpace(reply) == "" {
		return "I'm not sure what to say to that. I can add, list, complete, " +
			"edit, or delete tasks for you."
	}
	return reply
}

// BuildPrompt renders the fallback prompt: assistant role instructions, the
// current date, the recent history as "role: content" lines, and the
// utterance.
func BuildPrompt(history []model.Message, utterance string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are a friendly, concise assistant inside a task manager app. ")
	b.WriteString("Help the user with their tasks and chat naturally.\n")
	fmt.Fprintf(&b, "Current date: %s\n\n", now.Format("2006-01-02"))

	b.WriteString("Rules:\n")
	b.WriteString("- Only talk about marking a task complete when the user uses ")
	b.WriteString("explicit completion language.\n")
	b.WriteString("- Treat \"update X to Y\" as a rename, never as completing X.\n")
	b.WriteString("- Keep replies short.\n\n")

	if len(history) > 0 {
		start := 0
		if len(history) > historyLimit {
			start = len(history) - historyLimit
		}
		b.WriteString("Recent conversation:\n")
		for _, msg := range history[start:] {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\n\nRespond naturally.", utterance)

	return b.String()
}
