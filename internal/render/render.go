// Package render formats tokenized documents for terminals.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/gomlx/go-ruletok/tokenizers/rulebased"
)

var (
	tokenStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24"))
	specialStyle    = tokenStyle.Background(lipgloss.Color("94"))
	whitespaceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ruleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Bold(true)
)

// Tokens renders the tokens of doc on one line, each as a colored cell, separated by a space where the
// token has SpaceAfter set. Tokens from special cases have their own color, and whitespace tokens are
// made visible.
func Tokens(doc *api.Doc) string {
	var sb strings.Builder
	for i, tok := range doc.Tokens {
		text := doc.TokenText(i)
		switch {
		case strings.TrimSpace(text) == "":
			sb.WriteString(whitespaceStyle.Render(visibleSpace(text)))
		case tok.Attrs != nil:
			sb.WriteString(specialStyle.Render(text))
		default:
			sb.WriteString(tokenStyle.Render(text))
		}
		if tok.SpaceAfter {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func visibleSpace(s string) string {
	return strings.NewReplacer(" ", "·", "\t", "→", "\n", "⏎", "\r", "␍").Replace(s)
}

// Explanations renders one line per token: the rule that produced it, then its text.
func Explanations(explanations []rulebased.Explanation) string {
	width := 0
	for _, e := range explanations {
		width = max(width, lipgloss.Width(e.Rule))
	}
	rule := ruleStyle.Width(width + 2)
	lines := make([]string, len(explanations))
	for i, e := range explanations {
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, rule.Render(e.Rule), e.Text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
