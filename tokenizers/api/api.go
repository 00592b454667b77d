// Package api defines the Tokenizer API.
// It's kept separate so that alternative implementations (rule-based, SentencePiece, ...) can be
// swapped at the pipeline boundary without importing each other.
package api

import (
	"strings"
)

// Span represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
type Span struct {
	Start int // start byte position (inclusive)
	End   int // end byte position (exclusive)
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Well-known attribute names used by special cases.
const (
	AttrOrth  = "ORTH"
	AttrNorm  = "NORM"
	AttrLemma = "LEMMA"
	AttrTag   = "TAG"
)

// Attrs are attribute overrides attached to a token, e.g. {"ORTH": "n't", "NORM": "not"}.
type Attrs map[string]string

// Clone returns a copy of the attributes, or nil if there are none.
func (a Attrs) Clone() Attrs {
	if len(a) == 0 {
		return nil
	}
	c := make(Attrs, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Token is a span of the original text plus whether it is followed by a single space.
type Token struct {
	Span

	// SpaceAfter is set when the token is followed by one U+0020 space in the original text.
	SpaceAfter bool

	// Orth is the id of the token text in the vocabulary, if a vocabulary was configured.
	Orth uint64

	// Attrs holds overrides supplied by a special case, nil otherwise.
	Attrs Attrs
}

// Doc is the result of tokenizing a text: the text itself and its tokens, in order.
type Doc struct {
	Text   string
	Tokens []Token
}

// Len returns the number of tokens.
func (d *Doc) Len() int {
	return len(d.Tokens)
}

// TokenText returns the text of the i-th token.
func (d *Doc) TokenText(i int) string {
	span := d.Tokens[i].Span
	return d.Text[span.Start:span.End]
}

// Words returns the text of every token.
func (d *Doc) Words() []string {
	words := make([]string, len(d.Tokens))
	for i := range d.Tokens {
		words[i] = d.TokenText(i)
	}
	return words
}

// String reconstructs the text from the tokens: each token followed by a space if SpaceAfter is set.
func (d *Doc) String() string {
	var sb strings.Builder
	sb.Grow(len(d.Text))
	for i, tok := range d.Tokens {
		sb.WriteString(d.TokenText(i))
		if tok.SpaceAfter {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// Tokenizer is the single capability every tokenizer implementation offers: given text, produce its tokens.
type Tokenizer interface {
	Tokenize(text string) (*Doc, error)
}

// Vocab is the interning collaborator a tokenizer may be given.
// Intern returns the id of the given string, creating an entry if needed. Implementations that
// can't assign an id (vocab.Vocab on a hash collision) panic: Tokenize doesn't recover from it.
type Vocab interface {
	Intern(s string) uint64
}
