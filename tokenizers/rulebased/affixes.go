package rulebased

import (
	"unicode/utf8"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
)

// pieceKind records which rule produced a piece of a chunk.
type pieceKind uint8

const (
	kindToken pieceKind = iota
	kindSpecial
	kindTokenMatch
	kindPrefix
	kindSuffix
	kindURLMatch
	kindInfix
)

// piece is one token of a chunk, with offsets relative to the start of the chunk.
// Pieces are immutable once built: they are shared through the cache.
type piece struct {
	start, end int
	kind       pieceKind
	// specialIdx is the index of the token inside its special case, for kindSpecial.
	specialIdx int
	attrs      api.Attrs
}

// splitAffixes runs the affix-stripping loop over one whitespace-free chunk.
//
// Special cases and TokenMatch are checked on every iteration, so whatever is left after stripping a
// prefix or suffix can still hit a special case. Prefixes are emitted as found, suffixes are stacked and
// emitted in reverse at the end. Infixes end the loop: the text around them is emitted as-is.
func (t *Tokenizer) splitAffixes(st *ruleState, chunk string) ([]piece, error) {
	var pieces, suffixes []piece
	start, end := 0, len(chunk)

loop:
	for start < end {
		s := chunk[start:end]

		if sc, ok := st.lookup(s); ok {
			t.metrics.specialCaseHit()
			for i, span := range sc.spans {
				pieces = append(pieces, piece{
					start:      start + span.Start,
					end:        start + span.End,
					kind:       kindSpecial,
					specialIdx: i,
					attrs:      sc.attrs[i],
				})
			}
			break loop
		}
		if t.matchers.TokenMatch != nil && t.matchers.TokenMatch(s) {
			pieces = append(pieces, piece{start: start, end: end, kind: kindTokenMatch})
			break loop
		}

		n, err := t.findPrefix(s)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			pieces = append(pieces, piece{start: start, end: start + n, kind: kindPrefix})
			start += n
			continue
		}

		i, err := t.findSuffix(s)
		if err != nil {
			return nil, err
		}
		if i < len(s) {
			suffixes = append(suffixes, piece{start: start + i, end: end, kind: kindSuffix})
			end = start + i
			continue
		}

		if t.matchers.URLMatch != nil && t.matchers.URLMatch(s) {
			pieces = append(pieces, piece{start: start, end: end, kind: kindURLMatch})
			break loop
		}

		spans, err := t.findInfixes(s)
		if err != nil {
			return nil, err
		}
		if len(spans) > 0 {
			cursor := 0
			for _, span := range spans {
				if span.Start > cursor {
					pieces = append(pieces, piece{start: start + cursor, end: start + span.Start, kind: kindToken})
				}
				pieces = append(pieces, piece{start: start + span.Start, end: start + span.End, kind: kindInfix})
				cursor = span.End
			}
			if cursor < len(s) {
				pieces = append(pieces, piece{start: start + cursor, end: end, kind: kindToken})
			}
			break loop
		}

		pieces = append(pieces, piece{start: start, end: end, kind: kindToken})
		break loop
	}

	for i := len(suffixes) - 1; i >= 0; i-- {
		pieces = append(pieces, suffixes[i])
	}
	return pieces, nil
}

// findPrefix returns the length of the prefix of s, 0 if there is none.
func (t *Tokenizer) findPrefix(s string) (int, error) {
	if t.matchers.Prefix == nil {
		return 0, nil
	}
	n, ok := t.matchers.Prefix(s)
	if !ok || n == 0 {
		return 0, nil
	}
	if n < 0 || n > len(s) {
		return 0, errors.Wrapf(ErrMatcherContract, "prefix matcher returned end %d for %q (length %d)", n, s, len(s))
	}
	if !onRuneBoundary(s, n) {
		return 0, errors.Wrapf(ErrMatcherContract, "prefix matcher returned end %d for %q, inside a UTF-8 sequence", n, s)
	}
	return n, nil
}

// findSuffix returns where the suffix of s starts, len(s) if there is none.
func (t *Tokenizer) findSuffix(s string) (int, error) {
	if t.matchers.Suffix == nil {
		return len(s), nil
	}
	i, ok := t.matchers.Suffix(s)
	if !ok || i == len(s) {
		return len(s), nil
	}
	if i < 0 || i > len(s) {
		return 0, errors.Wrapf(ErrMatcherContract, "suffix matcher returned start %d for %q (length %d)", i, s, len(s))
	}
	if !onRuneBoundary(s, i) {
		return 0, errors.Wrapf(ErrMatcherContract, "suffix matcher returned start %d for %q, inside a UTF-8 sequence", i, s)
	}
	return i, nil
}

// findInfixes returns the non-empty infix spans of s, after checking they are in bounds and ordered.
func (t *Tokenizer) findInfixes(s string) ([]api.Span, error) {
	if t.matchers.Infix == nil {
		return nil, nil
	}
	matches := t.matchers.Infix(s)
	if len(matches) == 0 {
		return nil, nil
	}
	spans := make([]api.Span, 0, len(matches))
	prevEnd := 0
	for _, m := range matches {
		if m.Start < 0 || m.End > len(s) || m.End < m.Start {
			return nil, errors.Wrapf(ErrMatcherContract, "infix matcher returned span [%d, %d) for %q (length %d)",
				m.Start, m.End, s, len(s))
		}
		if m.Start < prevEnd {
			return nil, errors.Wrapf(ErrMatcherContract, "infix matcher returned span [%d, %d) for %q, overlapping or before the previous one ending at %d",
				m.Start, m.End, s, prevEnd)
		}
		if !onRuneBoundary(s, m.Start) || !onRuneBoundary(s, m.End) {
			return nil, errors.Wrapf(ErrMatcherContract, "infix matcher returned span [%d, %d) for %q, inside a UTF-8 sequence",
				m.Start, m.End, s)
		}
		if m.Start == m.End {
			continue
		}
		spans = append(spans, m)
		prevEnd = m.End
	}
	return spans, nil
}

func onRuneBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}
