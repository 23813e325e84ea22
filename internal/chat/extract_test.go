package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	cases := []struct {
		name      string
		utterance string
		want      string
	}{
		{"called phrasing", "add a task called Buy groceries", "Buy groceries"},
		{"to phrasing", "create a task to call mom", "call mom"},
		{"quoted title", `add task "Buy milk"`, "Buy milk"},
		{"colon phrasing", "new todo: fix the sink", "fix the sink"},
		{"noun marker yields one-word hint", "delete task Buy milk", "Buy"},
		{"verb fallback capitalizes", "schedule dentist appointment", "Dentist appointment"},
		{"no title", "hello there", ""},
		{"bare verb with article", "add a", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractTitle(tc.utterance))
		})
	}
}

func TestExtractTitle_TrailingPunctuationStops(t *testing.T) {
	assert.Equal(t, "Buy milk", ExtractTitle("add a task called Buy milk. thanks"))
}
