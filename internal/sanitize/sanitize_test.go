package sanitize

import (
	"testing"

	"github.com/Nagell/chat-nest/internal/models"
)

func TestEscapeHTMLEscapesDangerousCharacters(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"script tag", "<script>", "&lt;script&gt;"},
		{"ampersand", "fish & chips", "fish &amp; chips"},
		{"quotes", `say "hi" y'all`, "say &quot;hi&quot; y&#39;all"},
		{"newline", "line one\nline two", "line one<br>line two"},
		{"empty", "", ""},
		{"plain text untouched", "hello world", "hello world"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EscapeHTML(tc.input); got != tc.want {
				t.Fatalf("EscapeHTML(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestEscapeHTMLSinglePass(t *testing.T) {
	// One application must not recursively rewrite its own output:
	// "<" becomes "&lt;" and the "&" inside that entity stays as is.
	if got := EscapeHTML("<"); got != "&lt;" {
		t.Fatalf("expected %q, got %q", "&lt;", got)
	}
}

func TestMessageEscapesContentOnly(t *testing.T) {
	message := models.ChatMessage{ID: 7, SessionID: 42, Content: "<b>hi</b>", SenderType: models.SenderVisitor}

	got := Message(message)
	if got.Content != "&lt;b&gt;hi&lt;/b&gt;" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
	if message.Content != "<b>hi</b>" {
		t.Fatalf("input message mutated: %q", message.Content)
	}
	if got.ID != 7 || got.SessionID != 42 {
		t.Fatalf("metadata changed: %+v", got)
	}
}

func TestSessionEscapesVisitorFields(t *testing.T) {
	session := models.ChatSession{
		ID:           3,
		VisitorEmail: `"evil"@example.com`,
		VisitorName:  "<img src=x>",
	}

	got := Session(session)
	if got.VisitorEmail != "&quot;evil&quot;@example.com" {
		t.Fatalf("unexpected email: %q", got.VisitorEmail)
	}
	if got.VisitorName != "&lt;img src=x&gt;" {
		t.Fatalf("unexpected name: %q", got.VisitorName)
	}
}

func TestSessionKeepsEmptyName(t *testing.T) {
	got := Session(models.ChatSession{VisitorEmail: "a@b.com"})
	if got.VisitorName != "" {
		t.Fatalf("expected empty name, got %q", got.VisitorName)
	}
}
