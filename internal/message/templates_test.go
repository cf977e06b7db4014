package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreetingBindings(t *testing.T) {
	r := NewRenderer()
	out, err := r.Greeting("Riley", "Office check-in")
	require.NoError(t, err)
	assert.Equal(t, "Hi Riley! Survey: Office check-in", out)
}

func TestPromptBindings(t *testing.T) {
	r := NewRenderer()
	out, err := r.Prompt("Office check-in", "Where are you working from?")
	require.NoError(t, err)
	assert.Contains(t, out, "*Office check-in*")
	assert.Contains(t, out, "Where are you working from?")
}

func TestReminderDefaultMentionsSurvey(t *testing.T) {
	r := NewRenderer()
	out, err := r.Reminder("Office check-in", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "*Office check-in*")
}

func TestCustomReminderTemplateWithOrdinal(t *testing.T) {
	r := NewRenderer(WithReminderTemplate("Reminder #{{ ordinal }} for {{ survey_name }}"))
	out, err := r.Reminder("Check-in", 2)
	require.NoError(t, err)
	assert.Equal(t, "Reminder #2 for Check-in", out)
}
