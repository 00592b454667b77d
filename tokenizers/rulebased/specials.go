package rulebased

import (
	"strings"
	"unicode"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidSpecialCase is returned when a special case is rejected at registration.
	ErrInvalidSpecialCase = errors.New("invalid special case")

	// ErrMatcherContract is returned when a matcher reports offsets that break its contract.
	ErrMatcherContract = errors.New("matcher contract violation")
)

// specialCase is a validated special case: the replacement attributes and where each token
// starts and ends inside the literal.
type specialCase struct {
	attrs []api.Attrs
	spans []api.Span
}

// ruleState is an immutable snapshot of the special-case table.
// A new snapshot, with a higher version, replaces it whenever a rule is added.
type ruleState struct {
	version  uint64
	specials map[string]*specialCase
}

func (st *ruleState) lookup(s string) (*specialCase, bool) {
	sc, ok := st.specials[s]
	return sc, ok
}

// newSpecialCase validates the token attributes of a special case.
//
// The ORTH values must concatenate exactly to the literal: special cases split text, they never rewrite it,
// so spans into the original string stay valid.
func newSpecialCase(literal string, tokens []api.Attrs) (*specialCase, error) {
	if literal == "" {
		return nil, errors.Wrap(ErrInvalidSpecialCase, "empty literal")
	}
	if strings.IndexFunc(literal, unicode.IsSpace) >= 0 {
		return nil, errors.Wrapf(ErrInvalidSpecialCase, "literal %q contains whitespace", literal)
	}
	if len(tokens) == 0 {
		return nil, errors.Wrapf(ErrInvalidSpecialCase, "no tokens given for %q", literal)
	}
	sc := &specialCase{
		attrs: make([]api.Attrs, len(tokens)),
		spans: make([]api.Span, len(tokens)),
	}
	pos := 0
	for i, token := range tokens {
		orth, ok := token[api.AttrOrth]
		if !ok || orth == "" {
			return nil, errors.Wrapf(ErrInvalidSpecialCase, "token #%d of %q has no %s", i, literal, api.AttrOrth)
		}
		for key := range token {
			if key == "" {
				return nil, errors.Wrapf(ErrInvalidSpecialCase, "token #%d of %q has an empty attribute name", i, literal)
			}
		}
		if !strings.HasPrefix(literal[pos:], orth) {
			return nil, errors.Wrapf(ErrInvalidSpecialCase, "%s values of %q don't add up to the literal (token #%d is %q)",
				api.AttrOrth, literal, i, orth)
		}
		sc.attrs[i] = token.Clone()
		sc.spans[i] = api.Span{Start: pos, End: pos + len(orth)}
		pos += len(orth)
	}
	if pos != len(literal) {
		return nil, errors.Wrapf(ErrInvalidSpecialCase, "%s values of %q only cover %q", api.AttrOrth, literal, literal[:pos])
	}
	return sc, nil
}
