// Package sanitize neutralizes user-supplied text before it reaches a
// rendering surface (websocket payload, admin summary, email body). Callers
// must apply it exactly once per value per destination.
package sanitize

import (
	"strings"

	"github.com/Nagell/chat-nest/internal/models"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "<br>",
)

// EscapeHTML escapes the five HTML-significant characters and converts
// newlines to <br>. Empty input maps to the empty string.
func EscapeHTML(text string) string {
	if text == "" {
		return ""
	}
	return htmlEscaper.Replace(text)
}

// Message returns a copy of the message with escaped content.
func Message(message models.ChatMessage) models.ChatMessage {
	message.Content = EscapeHTML(message.Content)
	return message
}

// Session returns a copy of the session with escaped visitor fields.
func Session(session models.ChatSession) models.ChatSession {
	session.VisitorEmail = EscapeHTML(session.VisitorEmail)
	if session.VisitorName != "" {
		session.VisitorName = EscapeHTML(session.VisitorName)
	}
	return session
}
