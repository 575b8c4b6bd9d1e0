package snippet

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// MaxRunes is the rune budget of a rendered preview; longer text is cut
// and terminated with an ellipsis
const MaxRunes = 50

// node mirrors the stored document shape: nested content nodes with
// optional leaf text
type node struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content []node `json:"content"`
}

// Render flattens a stored post snippet into a plaintext preview.
// The stored form is a serialized structured document (nested
// content/text nodes); input that does not parse as one is treated as
// plain text. Whitespace is collapsed and the result is truncated to
// MaxRunes runes. Pure, no I/O.
func Render(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	text := raw
	var doc node
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		var b strings.Builder
		collect(&b, doc)
		text = b.String()
	}

	return truncate(strings.Join(strings.Fields(text), " "))
}

func collect(b *strings.Builder, n node) {
	if n.Text != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
	}
	for _, c := range n.Content {
		collect(b, c)
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxRunes]) + "…"
}
