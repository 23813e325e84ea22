package chat

import (
	"strings"

	"github.com/nhle/todo-assistant/internal/model"
)

// FindBestMatch resolves a free-text reference to one of the user's tasks.
// Matching runs in three tiers: exact title match, then title-prefix match,
// then substring match. Substring ties go to the shortest title, and among
// equal lengths to the most recently created task. Returns nil when nothing
// matches.
func FindBestMatch(tasks []model.Task, query string) *model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(tasks) == 0 {
		return nil
	}

	for i := range tasks {
		if strings.ToLower(tasks[i].Title) == q {
			return &tasks[i]
		}
	}

	for i := range tasks {
		if strings.HasPrefix(strings.ToLower(tasks[i].Title), q) {
			return &tasks[i]
		}
	}

	var best *model.Task
	for i := range tasks {
		t := &tasks[i]
		if !strings.Contains(strings.ToLower(t.Title), q) {
			continue
		}
		if best == nil ||
			len(t.Title) < len(best.Title) ||
			(len(t.Title) == len(best.Title) && t.CreatedAt.After(best.CreatedAt)) {
			best = t
		}
	}
	return best
}
