// Package chat implements the rule-based intent-resolution engine behind the
// conversational endpoint: classifying an utterance into a task operation,
// extracting a candidate title, matching a referenced task, and dispatching
// the operation against the store.
package chat

import "strings"

// Intent is the category of task operation inferred from an utterance.
type Intent string

// Intent values, in classification priority order.
const (
	IntentCreate   Intent = "create"
	IntentList     Intent = "list"
	IntentDelete   Intent = "delete"
	IntentComplete Intent = "complete"
	IntentEdit     Intent = "edit"
	IntentNone     Intent = "none"
)

// IntentRule is a single classification predicate: the utterance must
// contain at least one verb, at least one noun when Nouns is non-nil, and
// none of the veto words.
type IntentRule struct {
	Intent Intent
	Verbs  []string
	Nouns  []string
	Veto   []string
}

var editVerbs = []string{"edit", "update", "change", "modify", "rename", "correct"}

// IntentRules is the ordered rule table evaluated first-match-wins. The
// order is load-bearing: keyword sets overlap across rules, and correctness
// depends entirely on priority. Complete is vetoed by edit verbs so that
// "update task to done" classifies as edit while "mark done" stays complete.
var IntentRules = []IntentRule{
	{
		Intent: IntentCreate,
		Verbs:  []string{"add", "create", "new", "make"},
		Nouns:  []string{"task", "todo", "reminder", "item"},
	},
	{
		Intent: IntentList,
		Verbs:  []string{"list", "show", "view", "see", "my", "all"},
		Nouns:  []string{"task", "tasks", "todo", "todos"},
	},
	{
		Intent: IntentDelete,
		Verbs:  []string{"delete", "remove", "cancel", "clear", "trash"},
		Nouns:  []string{"task", "tasks", "todo", "item"},
	},
	{
		Intent: IntentComplete,
		Verbs:  []string{"complete", "done", "finish", "mark", "checked", "ticked"},
		Veto:   editVerbs,
	},
	{
		Intent: IntentEdit,
		Verbs:  editVerbs,
	},
}

// ClassifyIntent picks exactly one intent for the utterance by evaluating
// IntentRules in order. Keywords match by substring containment on the
// lower-cased, trimmed utterance.
func ClassifyIntent(utterance string) Intent {
	msg := strings.ToLower(strings.TrimSpace(utterance))
	if msg == "" {
		return IntentNone
	}

	for _, rule := range IntentRules {
		if !containsAny(msg, rule.Verbs) {
			continue
		}
		if rule.Nouns != nil && !containsAny(msg, rule.Nouns) {
			continue
		}
		if containsAny(msg, rule.Veto) {
			continue
		}
		return rule.Intent
	}

	return IntentNone
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
