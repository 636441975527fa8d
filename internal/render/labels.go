package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"kgview/internal/domain"
)

const maxLabelRunes = 28

// Abbreviate returns the short glyph text drawn inside a node: the initials
// of the first two words of the label, or its first two letters for a single
// word. An empty label falls back to the id.
func Abbreviate(n *domain.Node) string {
	text := strings.TrimSpace(n.Label)
	if text == "" {
		text = n.ID
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '/'
	})
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	if len(words) == 1 {
		for i, r := range []rune(words[0]) {
			if i == 2 {
				break
			}
			b.WriteRune(unicode.ToUpper(r))
		}
		return b.String()
	}
	for _, w := range words[:2] {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// DisplayLabel returns the full label shown beneath a node, truncated
func DisplayLabel(n *domain.Node) string {
	text := n.Label
	if text == "" {
		text = n.ID
	}
	return truncate(text, maxLabelRunes)
}

// edgeLabel returns the midpoint caption of an edge
func edgeLabel(e *domain.Edge) string {
	if e.Label != "" {
		return truncate(e.Label, maxLabelRunes)
	}
	return strings.ReplaceAll(string(e.Type.Normalize()), "_", " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
