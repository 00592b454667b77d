package vocab

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Lexeme holds the context-independent attributes of a word type.
// Every string attribute is itself stored in the vocabulary's StringStore.
type Lexeme struct {
	Orth   uint64
	Lower  uint64
	Norm   uint64
	Shape  uint64
	Prefix uint64
	Suffix uint64

	IsAlpha bool
	IsDigit bool
	IsPunct bool
	IsSpace bool
	IsUpper bool
	IsTitle bool
	LikeNum bool
}

// Attributes computed for a string, before interning.
type lexAttrs struct {
	lower, norm, shape, prefix, suffix string

	isAlpha, isDigit, isPunct, isSpace, isUpper, isTitle, likeNum bool
}

func computeAttrs(s string) lexAttrs {
	return lexAttrs{
		lower:   strings.ToLower(s),
		norm:    normalize(s),
		shape:   shape(s),
		prefix:  firstRunes(s, 1),
		suffix:  lastRunes(s, 3),
		isAlpha: s != "" && all(s, unicode.IsLetter),
		isDigit: s != "" && all(s, unicode.IsDigit),
		isPunct: s != "" && all(s, isPunctuation),
		isSpace: s != "" && all(s, unicode.IsSpace),
		isUpper: hasCased(s) && strings.ToUpper(s) == s,
		isTitle: isTitle(s),
		likeNum: likeNum(s),
	}
}

// normalize applies NFKC, case folding, and drops nonspacing marks left by the decomposition.
func normalize(s string) string {
	// Casers are stateful: one per call.
	s = cases.Fold().String(norm.NFKC.String(s))
	decomposed := norm.NFD.String(s)
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if !unicode.Is(unicode.Mn, r) {
			sb.WriteRune(r)
		}
	}
	return norm.NFC.String(sb.String())
}

// shape maps letters to "X"/"x" and digits to "d", keeping other characters. Runs of the same
// character longer than 4 are cut to 4: "Hello" -> "Xxxxx" and "Mississippi" -> "Xxxxx".
func shape(s string) string {
	var sb strings.Builder
	var last rune
	run := 0
	for _, r := range s {
		var c rune
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c == last {
			run++
		} else {
			last, run = c, 1
		}
		if run <= 4 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// isPunctuation is true for ASCII symbols and punctuation, and for Unicode punctuation.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func all(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if !fn(r) {
			return false
		}
	}
	return true
}

func hasCased(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.IsUpper(r) || unicode.IsLower(r) }) >= 0
}

func isTitle(s string) bool {
	first, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(first) {
		return false
	}
	return !strings.ContainsFunc(s[size:], unicode.IsUpper)
}

func firstRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

func lastRunes(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

var numberWords = map[string]bool{
	"zero": true, "one": true, "two": true, "three": true, "four": true, "five": true, "six": true,
	"seven": true, "eight": true, "nine": true, "ten": true, "eleven": true, "twelve": true,
	"thirteen": true, "fourteen": true, "fifteen": true, "sixteen": true, "seventeen": true,
	"eighteen": true, "nineteen": true, "twenty": true, "thirty": true, "forty": true, "fifty": true,
	"sixty": true, "seventy": true, "eighty": true, "ninety": true, "hundred": true, "thousand": true,
	"million": true, "billion": true, "trillion": true,
}

// likeNum is true for digits with separators ("10,000", "3.14"), signed numbers, fractions ("1/2"),
// and English number words.
func likeNum(s string) bool {
	s = strings.TrimLeft(s, "+-±~")
	if s == "" {
		return false
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(s)
	if digits != "" && all(digits, unicode.IsDigit) {
		return true
	}
	if num, denom, ok := strings.Cut(s, "/"); ok && num != "" && denom != "" &&
		all(num, unicode.IsDigit) && all(denom, unicode.IsDigit) {
		return true
	}
	return numberWords[strings.ToLower(s)]
}
