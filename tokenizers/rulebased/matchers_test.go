package rulebased

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixFromRegexp(t *testing.T) {
	re, err := CompilePrefixes([]string{`[("„¿]`, `\.\.\.`})
	require.NoError(t, err)
	prefix := PrefixFromRegexp(re)
	tests := []struct {
		input string
		end   int
		ok    bool
	}{
		{"(hello", 1, true},
		{"„Hallo", 3, true},
		{"¿qué", 2, true},
		{"...and", 3, true},
		{"hello(", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		end, ok := prefix(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.end, end, "input %q", tt.input)
	}
}

func TestSuffixFromRegexp(t *testing.T) {
	re, err := CompileSuffixes([]string{`[)".?!…]`, `\.\.\.`, `'s`})
	require.NoError(t, err)
	suffix := SuffixFromRegexp(re)
	tests := []struct {
		input string
		start int
		ok    bool
	}{
		{"end.", 3, true},
		{"süß.", 5, true},
		{"gimme…", 5, true},
		// The leftmost match wins, so "..." is taken whole.
		{"gimme...", 5, true},
		{"gimme...?", 8, true},
		{"John's", 4, true},
		{"(start", 0, false},
	}
	for _, tt := range tests {
		start, ok := suffix(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.start, start, "input %q", tt.input)
	}
}

func TestInfixFromRegexp(t *testing.T) {
	re, err := CompileInfixes([]string{`(?<=[0-9])[+\-*^](?=[0-9-])`, `(?<=[a-zäöüß])-(?=[a-zäöüß])`})
	require.NoError(t, err)
	infix := InfixFromRegexp(re)
	assert.Equal(t, []api.Span{{1, 2}}, infix("1+2"))
	assert.Equal(t, []api.Span{{1, 2}, {3, 4}}, infix("1*2^3"))
	assert.Equal(t, []api.Span{{5, 6}}, infix("grün-blau"))
	assert.Equal(t, []api.Span{{5, 6}, {11, 12}}, infix("grün-weiß-rot"))
	assert.Empty(t, infix("a+b"))
	assert.Empty(t, infix("-1"))
}

func TestMatchFromRegexp(t *testing.T) {
	match, err := compileWholeMatch(`https?://\S+`)
	require.NoError(t, err)
	assert.True(t, match("https://example.com/a-b"))
	assert.True(t, match("http://ü.de"))
	assert.False(t, match("see:https://example.com"))
	assert.False(t, match("https://"))

	match, err = compileWholeMatch("")
	require.NoError(t, err)
	assert.Nil(t, match)

	re := regexp2.MustCompile(`ab`, regexp2.None)
	assert.False(t, MatchFromRegexp(re)("abc"))
	assert.True(t, MatchFromRegexp(re)("ab"))
}

func TestCompileEmptyAndInvalid(t *testing.T) {
	re, err := CompilePrefixes(nil)
	require.NoError(t, err)
	assert.Nil(t, re)
	assert.Nil(t, PrefixFromRegexp(re))
	assert.Nil(t, SuffixFromRegexp(re))
	assert.Nil(t, InfixFromRegexp(re))
	assert.Nil(t, MatchFromRegexp(re))

	_, err = CompileSuffixes([]string{`\.`, `(`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid pattern "("`)
}

func TestRuneIndex(t *testing.T) {
	ri := newRuneIndex("abc")
	assert.Nil(t, ri.offsets)
	assert.Equal(t, 2, ri.byteOffset(2))

	ri = newRuneIndex("aßc")
	assert.Equal(t, []int{0, 1, 3, 4}, ri.offsets)
	assert.Equal(t, 3, ri.byteOffset(2))
	assert.Equal(t, 4, ri.byteOffset(3))
}
