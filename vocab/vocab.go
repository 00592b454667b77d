// Package vocab implements the vocabulary a tokenizer interns its token texts into: a StringStore
// mapping strings to stable ids, and a table of Lexemes with the lexical attributes of each string.
package vocab

import (
	"sync"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
)

// Vocab is a lexeme table backed by a StringStore. It is safe for concurrent use.
type Vocab struct {
	Strings *StringStore

	mu      sync.RWMutex
	lexemes map[uint64]*Lexeme
}

// Compile time assert that Vocab implements api.Vocab interface.
var _ api.Vocab = &Vocab{}

// New creates an empty vocabulary.
func New() *Vocab {
	return &Vocab{
		Strings: NewStringStore(),
		lexemes: make(map[uint64]*Lexeme),
	}
}

// Intern implements api.Vocab: it returns the id of s, creating its Lexeme on first use.
// It panics on a hash collision, see TryLexeme.
func (v *Vocab) Intern(s string) uint64 {
	return v.Lexeme(s).Orth
}

// Lexeme returns the lexeme of s, creating it if needed. Lexemes must not be modified.
// It panics on a hash collision, see TryLexeme.
func (v *Vocab) Lexeme(s string) *Lexeme {
	lex, err := v.TryLexeme(s)
	if err != nil {
		panic(err)
	}
	return lex
}

// TryLexeme is like Lexeme, but returns an error wrapping ErrHashCollision if s, or one of
// its attribute strings, collides with a different string already in the vocabulary.
func (v *Vocab) TryLexeme(s string) (*Lexeme, error) {
	id := Hash(s)
	v.mu.RLock()
	lex, found := v.lexemes[id]
	v.mu.RUnlock()
	if found {
		if orth, _ := v.Strings.Get(id); orth != s {
			return nil, errors.Wrapf(ErrHashCollision, "lexeme %q and %q (id %d)", orth, s, id)
		}
		return lex, nil
	}

	a := computeAttrs(s)
	var ids [6]uint64
	for i, attr := range []string{s, a.lower, a.norm, a.shape, a.prefix, a.suffix} {
		var err error
		if ids[i], err = v.Strings.TryAdd(attr); err != nil {
			return nil, errors.WithMessagef(err, "while interning %q", s)
		}
	}
	lex = &Lexeme{
		Orth:    ids[0],
		Lower:   ids[1],
		Norm:    ids[2],
		Shape:   ids[3],
		Prefix:  ids[4],
		Suffix:  ids[5],
		IsAlpha: a.isAlpha,
		IsDigit: a.isDigit,
		IsPunct: a.isPunct,
		IsSpace: a.isSpace,
		IsUpper: a.isUpper,
		IsTitle: a.isTitle,
		LikeNum: a.likeNum,
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, found := v.lexemes[id]; found {
		return existing, nil
	}
	v.lexemes[id] = lex
	return lex, nil
}

// Get returns the lexeme with the given id, if it was interned.
func (v *Vocab) Get(id uint64) (*Lexeme, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	lex, ok := v.lexemes[id]
	return lex, ok
}

// String returns the text of an id, from any of the lexeme attributes.
func (v *Vocab) String(id uint64) string {
	s, _ := v.Strings.Get(id)
	return s
}

// Len returns the number of lexemes.
func (v *Vocab) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.lexemes)
}
