package rulebased

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PrefixFunc returns the byte length of the match anchored at the start of s.
// ok is false if there is no match. A zero length is treated as no match.
type PrefixFunc func(s string) (end int, ok bool)

// SuffixFunc returns the byte offset where the match anchored at the end of s starts.
// ok is false if there is no match. A start equal to len(s) is treated as no match.
type SuffixFunc func(s string) (start int, ok bool)

// InfixFunc returns the position-ordered, non-overlapping byte spans of the infixes found in s.
type InfixFunc func(s string) []api.Span

// MatchFunc reports whether s, as a whole, must be kept as one token.
type MatchFunc func(s string) bool

// Matchers are the injected functions the affix-stripping loop queries.
// Any of them may be nil, in which case it never matches.
// They must be pure: the chunk cache assumes the same input always yields the same matches.
type Matchers struct {
	Prefix PrefixFunc
	Suffix SuffixFunc
	Infix  InfixFunc

	// TokenMatch is checked together with special cases, before any affix is stripped.
	TokenMatch MatchFunc

	// URLMatch is checked after prefixes and suffixes are exhausted, before infixes.
	URLMatch MatchFunc
}

// CompilePrefixes joins the patterns into one regular expression that only matches at the start of a string.
func CompilePrefixes(patterns []string) (*regexp2.Regexp, error) {
	return compileJoined(patterns, "^(?:", ")")
}

// CompileSuffixes joins the patterns into one regular expression that only matches at the end of a string.
func CompileSuffixes(patterns []string) (*regexp2.Regexp, error) {
	return compileJoined(patterns, "(?:", ")$")
}

// CompileInfixes joins the patterns into one regular expression matching anywhere.
func CompileInfixes(patterns []string) (*regexp2.Regexp, error) {
	return compileJoined(patterns, "(?:", ")")
}

func compileJoined(patterns []string, open, close string) (*regexp2.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		// Compile each piece alone first, so a bad pattern is reported by itself.
		if _, err := regexp2.Compile(p, regexp2.None); err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}
		parts = append(parts, open+p+close)
	}
	expr := strings.Join(parts, "|")
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile %q", expr)
	}
	return re, nil
}

// PrefixFromRegexp returns a PrefixFunc for a regular expression anchored at the start, see CompilePrefixes.
func PrefixFromRegexp(re *regexp2.Regexp) PrefixFunc {
	if re == nil {
		return nil
	}
	return func(s string) (int, bool) {
		m := findFirst(re, s)
		if m == nil || m.Index != 0 || m.Length == 0 {
			return 0, false
		}
		return newRuneIndex(s).byteOffset(m.Length), true
	}
}

// SuffixFromRegexp returns a SuffixFunc for a regular expression anchored at the end, see CompileSuffixes.
func SuffixFromRegexp(re *regexp2.Regexp) SuffixFunc {
	if re == nil {
		return nil
	}
	return func(s string) (int, bool) {
		m := findFirst(re, s)
		if m == nil || m.Length == 0 {
			return 0, false
		}
		ri := newRuneIndex(s)
		if ri.byteOffset(m.Index+m.Length) != len(s) {
			return 0, false
		}
		return ri.byteOffset(m.Index), true
	}
}

// InfixFromRegexp returns an InfixFunc reporting every match of the regular expression.
func InfixFromRegexp(re *regexp2.Regexp) InfixFunc {
	if re == nil {
		return nil
	}
	return func(s string) []api.Span {
		var spans []api.Span
		var ri runeIndex
		m := findFirst(re, s)
		if m != nil {
			ri = newRuneIndex(s)
		}
		for m != nil {
			spans = append(spans, api.Span{
				Start: ri.byteOffset(m.Index),
				End:   ri.byteOffset(m.Index + m.Length),
			})
			next, err := re.FindNextMatch(m)
			if err != nil {
				klog.ErrorS(err, "Infix match failed", "pattern", re.String())
				break
			}
			m = next
		}
		return spans
	}
}

// MatchFromRegexp returns a MatchFunc that is true when the regular expression matches all of s.
func MatchFromRegexp(re *regexp2.Regexp) MatchFunc {
	if re == nil {
		return nil
	}
	return func(s string) bool {
		m := findFirst(re, s)
		return m != nil && m.Index == 0 && m.Length == utf8.RuneCountInString(s)
	}
}

func findFirst(re *regexp2.Regexp, s string) *regexp2.Match {
	m, err := re.FindStringMatch(s)
	if err != nil {
		// regexp2 only fails on match timeouts.
		klog.ErrorS(err, "Match failed", "pattern", re.String())
		return nil
	}
	return m
}

// runeIndex maps the rune indices reported by regexp2 to byte offsets.
type runeIndex struct {
	offsets []int // nil when the string is ASCII, in which case indices are offsets.
}

func newRuneIndex(s string) runeIndex {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			offsets := make([]int, 0, len(s)+1)
			for j := range s {
				offsets = append(offsets, j)
			}
			offsets = append(offsets, len(s))
			return runeIndex{offsets: offsets}
		}
	}
	return runeIndex{}
}

func (ri runeIndex) byteOffset(runeIdx int) int {
	if ri.offsets == nil {
		return runeIdx
	}
	return ri.offsets[runeIdx]
}
