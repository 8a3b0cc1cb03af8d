package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("  {\"a\":1}  "))
}

func TestParseSuggestion(t *testing.T) {
	s, err := ParseSuggestion("```json\n{\"priority\": \"high\", \"reason\": \"Lab is down\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "High", s.Priority)
	assert.Equal(t, "Lab is down", s.Reason)

	_, err = ParseSuggestion(`{"priority": "Critical"}`)
	assert.Error(t, err)
	_, err = ParseSuggestion("I think it is urgent")
	assert.Error(t, err)
}

func TestPromptListsPriorities(t *testing.T) {
	desc := "Projector in room 12 shows no signal"
	p := Prompt("No projector", &desc)
	assert.Contains(t, p, "Low, Medium, High, Urgent")
	assert.Contains(t, p, desc)
}

func TestSuggestPriorityWithoutKey(t *testing.T) {
	c := NewTriageClient("", "gemini-2.5-flash-lite")
	assert.False(t, c.Enabled())
	_, err := c.SuggestPriority(context.Background(), "x", nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
