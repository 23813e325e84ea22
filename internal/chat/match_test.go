package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-assistant/internal/model"
)

func taskList(titles ...string) []model.Task {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := make([]model.Task, len(titles))
	for i, title := range titles {
		tasks[i] = model.Task{
			ID:        title,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return tasks
}

func TestFindBestMatch_Exact(t *testing.T) {
	tasks := taskList("Buy milk", "Buy milk and eggs")
	got := FindBestMatch(tasks, "buy milk")
	require.NotNil(t, got)
	assert.Equal(t, "Buy milk", got.Title)
}

func TestFindBestMatch_Prefix(t *testing.T) {
	tasks := taskList("Call mom", "Buy groceries")
	got := FindBestMatch(tasks, "call")
	require.NotNil(t, got)
	assert.Equal(t, "Call mom", got.Title)
}

func TestFindBestMatch_SubstringPrefersShortest(t *testing.T) {
	tasks := taskList("Weekly grocery run", "Big grocery trip downtown")
	got := FindBestMatch(tasks, "grocery")
	require.NotNil(t, got)
	assert.Equal(t, "Weekly grocery run", got.Title)
}

func TestFindBestMatch_SubstringTieBreaksOnNewest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "1", Title: "Email Ann", CreatedAt: base},
		{ID: "2", Title: "Email Bob", CreatedAt: base.Add(time.Hour)},
	}
	got := FindBestMatch(tasks, "mail")
	require.NotNil(t, got)
	assert.Equal(t, "2", got.ID)
}

func TestFindBestMatch_NoMatch(t *testing.T) {
	tasks := taskList("Buy milk")
	assert.Nil(t, FindBestMatch(tasks, "laundry"))
	assert.Nil(t, FindBestMatch(tasks, ""))
	assert.Nil(t, FindBestMatch(nil, "buy"))
}
