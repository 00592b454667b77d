package rulebased

import (
	"fmt"
	"unicode"
)

// Explanation tells which rule produced a token.
type Explanation struct {
	// Rule is one of "SPECIAL-<n>" (n-th token of a special case, 1-based), "TOKEN_MATCH", "PREFIX",
	// "SUFFIX", "URL_MATCH", "INFIX" or "TOKEN".
	Rule string
	Text string
}

// String implements fmt.Stringer.
func (e Explanation) String() string {
	return fmt.Sprintf("%s\t%s", e.Rule, e.Text)
}

// Explain tokenizes text like Tokenize, but reports for every token the rule that produced it.
// Whitespace is skipped, and the cache is neither read nor written.
func (t *Tokenizer) Explain(text string) ([]Explanation, error) {
	st := t.state.Load()
	var explanations []Explanation
	start := -1
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		chunk := text[start:end]
		pieces, err := t.splitAffixes(st, chunk)
		if err != nil {
			return err
		}
		for _, p := range pieces {
			explanations = append(explanations, Explanation{Rule: p.rule(), Text: chunk[p.start:p.end]})
		}
		start = -1
		return nil
	}
	for i, r := range text {
		if unicode.IsSpace(r) {
			if err := flush(i); err != nil {
				return nil, err
			}
		} else if start < 0 {
			start = i
		}
	}
	if err := flush(len(text)); err != nil {
		return nil, err
	}
	return explanations, nil
}

func (p piece) rule() string {
	switch p.kind {
	case kindSpecial:
		return fmt.Sprintf("SPECIAL-%d", p.specialIdx+1)
	case kindTokenMatch:
		return "TOKEN_MATCH"
	case kindPrefix:
		return "PREFIX"
	case kindSuffix:
		return "SUFFIX"
	case kindURLMatch:
		return "URL_MATCH"
	case kindInfix:
		return "INFIX"
	default:
		return "TOKEN"
	}
}
