package logger

import (
	"fmt"
	"strings"
)

func redactValue(key, val string) string {
	k := strings.ToLower(key)
	// Survey answers are respondent content, never log them verbatim.
	if strings.Contains(k, "answer") {
		return RedactAnswer(val)
	}
	// Slack credentials (xoxb-/xapp-) must never reach the logs.
	if strings.Contains(k, "token") {
		return "***"
	}
	return val
}

// RedactAnswer masks free-text answer content, keeping only its length so
// operators can still tell an empty submission from a real one.
// "Paris, office 4" → "[redacted 15 chars]"
func RedactAnswer(answer string) string {
	if answer == "" {
		return ""
	}
	return fmt.Sprintf("[redacted %d chars]", len(answer))
}
