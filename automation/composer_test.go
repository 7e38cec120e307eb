package automation

import (
	"strings"
	"testing"

	"ringback/models"

	"github.com/stretchr/testify/assert"
)

func TestComposeReplacesPlaceholder(t *testing.T) {
	text := Compose("Missed you! Chat here: {link} - thanks", "https://chat.example/chat/abc123")

	assert.Equal(t, "Missed you! Chat here: https://chat.example/chat/abc123 - thanks", text)
	assert.NotContains(t, text, models.LinkPlaceholder)
	assert.Equal(t, 1, strings.Count(text, "https://chat.example/chat/abc123"))
}

func TestComposeAppendsLinkWhenPlaceholderMissing(t *testing.T) {
	text := Compose("Sorry, I am in a meeting.", "https://chat.example/chat/abc123")

	assert.True(t, strings.HasPrefix(text, "Sorry, I am in a meeting."))
	assert.True(t, strings.HasSuffix(text, "https://chat.example/chat/abc123"))
}

func TestComposeWithUnresolvedLink(t *testing.T) {
	text := Compose("Chat: {link}", "")

	assert.NotContains(t, text, models.LinkPlaceholder)
	assert.Contains(t, text, "link is being generated")
	assert.NotContains(t, text, "http")
}

func TestComposeEmptyTemplateFallsBackToDefault(t *testing.T) {
	text := Compose("   ", "https://chat.example/chat/abc123")

	assert.Contains(t, text, "https://chat.example/chat/abc123")
	assert.NotContains(t, text, models.LinkPlaceholder)
}

func TestComposeReplacesEveryOccurrence(t *testing.T) {
	text := Compose("{link} or {link}", "https://x.example/chat/t")

	assert.Equal(t, 2, strings.Count(text, "https://x.example/chat/t"))
	assert.NotContains(t, text, models.LinkPlaceholder)
}
