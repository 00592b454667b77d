// Package rulebased implements a rule-based tokenizer: text is split on whitespace, and each
// whitespace-delimited chunk is split further by stripping prefixes and suffixes and splitting on
// infixes, as reported by injected matchers. Special cases, exact-match overrides, win at every stage.
//
// Tokenization results are cached per chunk, so repeated words cost a map lookup.
package rulebased

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// WhitespacePolicy defines what happens to whitespace other than the single space following a token.
type WhitespacePolicy int

const (
	// WhitespacePreserve turns any whitespace not covered by a token's SpaceAfter flag into a token of its
	// own, so the text can be reconstructed exactly. This is the default.
	WhitespacePreserve WhitespacePolicy = iota

	// WhitespaceCollapse collapses every whitespace run into the SpaceAfter flag of the preceding token,
	// and drops leading whitespace.
	WhitespaceCollapse
)

// String implements fmt.Stringer.
func (p WhitespacePolicy) String() string {
	switch p {
	case WhitespacePreserve:
		return "preserve"
	case WhitespaceCollapse:
		return "collapse"
	default:
		return "unknown"
	}
}

// Option configures a Tokenizer.
type Option func(*config)

type config struct {
	vocab      api.Vocab
	cacheSize  int // < 0: disabled, 0: unbounded, > 0: LRU.
	whitespace WhitespacePolicy
	metrics    *Metrics
}

// WithVocab sets the vocabulary every token text is interned into.
func WithVocab(vocab api.Vocab) Option {
	return func(c *config) {
		c.vocab = vocab
	}
}

// WithCacheSize bounds the chunk cache to the given number of chunks, evicting the least recently used.
// By default the cache is unbounded.
func WithCacheSize(size int) Option {
	return func(c *config) {
		c.cacheSize = size
	}
}

// WithoutCache disables the chunk cache.
func WithoutCache() Option {
	return func(c *config) {
		c.cacheSize = -1
	}
}

// WithWhitespace sets the whitespace policy, WhitespacePreserve by default.
func WithWhitespace(policy WhitespacePolicy) Option {
	return func(c *config) {
		c.whitespace = policy
	}
}

// WithMetrics makes the tokenizer record its activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// Tokenizer is a rule-based tokenizer. It is safe for concurrent use, including AddSpecialCase.
type Tokenizer struct {
	matchers   Matchers
	vocab      api.Vocab
	whitespace WhitespacePolicy
	metrics    *Metrics
	cache      chunkCache

	// mu serializes rule changes; readers only load state.
	mu    sync.Mutex
	state atomic.Pointer[ruleState]

	// ruleSet is set when the tokenizer was built from a RuleSet, see NewFromRuleSet.
	ruleSet *RuleSet
}

// Compile time assert that Tokenizer implements api.Tokenizer interface.
var _ api.Tokenizer = &Tokenizer{}

// New creates a tokenizer from the given matchers and special cases.
//
// specialCases maps the literal text of a chunk to the tokens it's replaced by: each token must have an
// api.AttrOrth, and the ORTH values must concatenate to the literal.
func New(matchers Matchers, specialCases map[string][]api.Attrs, opts ...Option) (*Tokenizer, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &Tokenizer{
		matchers:   matchers,
		vocab:      cfg.vocab,
		whitespace: cfg.whitespace,
		metrics:    cfg.metrics,
	}
	switch {
	case cfg.cacheSize < 0:
		t.cache = noCache{}
	case cfg.cacheSize == 0:
		t.cache = newMapCache()
	default:
		cache, err := newLRUCache(cfg.cacheSize)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	t.state.Store(&ruleState{specials: make(map[string]*specialCase)})

	if err := t.AddSpecialCases(specialCases); err != nil {
		return nil, err
	}
	klog.V(2).InfoS("Created tokenizer", "specialCases", len(specialCases), "whitespace", cfg.whitespace)
	return t, nil
}

// AddSpecialCase registers (or replaces) the special case for literal, and invalidates the cache.
func (t *Tokenizer) AddSpecialCase(literal string, tokens []api.Attrs) error {
	return t.AddSpecialCases(map[string][]api.Attrs{literal: tokens})
}

// AddSpecialCases registers several special cases at once. Either all of them are added, or none
// is if any of them is invalid.
func (t *Tokenizer) AddSpecialCases(specialCases map[string][]api.Attrs) error {
	if len(specialCases) == 0 {
		return nil
	}
	validated := make(map[string]*specialCase, len(specialCases))
	for literal, tokens := range specialCases {
		sc, err := newSpecialCase(literal, tokens)
		if err != nil {
			return err
		}
		validated[literal] = sc
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state.Load()
	next := &ruleState{
		version:  st.version + 1,
		specials: make(map[string]*specialCase, len(st.specials)+len(validated)),
	}
	for literal, sc := range st.specials {
		next.specials[literal] = sc
	}
	for literal, sc := range validated {
		next.specials[literal] = sc
	}
	t.state.Store(next)
	// Entries computed under the old version may still be written by in-flight calls: the version
	// stamp makes sure they are never served.
	t.cache.purge()
	klog.V(4).InfoS("Special cases updated", "added", len(validated), "total", len(next.specials), "version", next.version)
	return nil
}

// SpecialCases returns a copy of the special-case table.
func (t *Tokenizer) SpecialCases() map[string][]api.Attrs {
	st := t.state.Load()
	specials := make(map[string][]api.Attrs, len(st.specials))
	for literal, sc := range st.specials {
		tokens := make([]api.Attrs, len(sc.attrs))
		for i, attrs := range sc.attrs {
			tokens[i] = attrs.Clone()
		}
		specials[literal] = tokens
	}
	return specials
}

// ClearCache drops every cached chunk.
func (t *Tokenizer) ClearCache() {
	t.cache.purge()
}

// CacheLen returns the number of cached chunks.
func (t *Tokenizer) CacheLen() int {
	return t.cache.len()
}

// Tokenize splits text into tokens. An empty text yields an empty Doc.
//
// It returns an error wrapping ErrMatcherContract if a matcher reports invalid offsets.
func (t *Tokenizer) Tokenize(text string) (*api.Doc, error) {
	doc := &api.Doc{Text: text}
	if text == "" {
		return doc, nil
	}
	st := t.state.Load()

	first, _ := utf8.DecodeRuneInString(text)
	inSpace := unicode.IsSpace(first)
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) == inSpace {
			continue
		}
		if inSpace {
			// Whitespace run ends at i.
			t.appendWhitespace(doc, start, i)
			start = i
		} else {
			// Chunk ends at i.
			if err := t.appendChunk(st, doc, start, i); err != nil {
				return nil, err
			}
			start = i
			if r == ' ' || t.whitespace == WhitespaceCollapse {
				doc.Tokens[len(doc.Tokens)-1].SpaceAfter = true
				if r == ' ' {
					start = i + 1
				}
			}
		}
		inSpace = !inSpace
	}
	if start < len(text) {
		if inSpace {
			t.appendWhitespace(doc, start, len(text))
		} else if err := t.appendChunk(st, doc, start, len(text)); err != nil {
			return nil, err
		}
	}
	t.metrics.tokens(len(doc.Tokens))
	return doc, nil
}

// appendWhitespace adds the whitespace text[start:end] as a token, unless whitespace is collapsed.
func (t *Tokenizer) appendWhitespace(doc *api.Doc, start, end int) {
	if t.whitespace == WhitespaceCollapse || start >= end {
		return
	}
	doc.Tokens = append(doc.Tokens, t.newToken(doc.Text, start, end, nil))
}

// appendChunk tokenizes the chunk text[start:end] and adds its tokens to doc.
func (t *Tokenizer) appendChunk(st *ruleState, doc *api.Doc, start, end int) error {
	pieces, err := t.chunkPieces(st, doc.Text[start:end])
	if err != nil {
		return err
	}
	for _, p := range pieces {
		doc.Tokens = append(doc.Tokens, t.newToken(doc.Text, start+p.start, start+p.end, p.attrs))
	}
	return nil
}

func (t *Tokenizer) newToken(text string, start, end int, attrs api.Attrs) api.Token {
	tok := api.Token{
		Span:  api.Span{Start: start, End: end},
		Attrs: attrs.Clone(),
	}
	if t.vocab != nil {
		tok.Orth = t.vocab.Intern(text[start:end])
	}
	return tok
}

// chunkPieces returns the pieces of chunk, from the cache if they were computed under the current rules.
func (t *Tokenizer) chunkPieces(st *ruleState, chunk string) ([]piece, error) {
	if e, ok := t.cache.get(chunk); ok && e.version == st.version {
		t.metrics.chunk(true)
		return e.pieces, nil
	}
	t.metrics.chunk(false)
	pieces, err := t.splitAffixes(st, chunk)
	if err != nil {
		return nil, err
	}
	// Clone the key: chunk points into the caller's text, which must not be kept alive by the cache.
	t.cache.put(strings.Clone(chunk), cacheEntry{version: st.version, pieces: pieces})
	return pieces, nil
}

// Pipe tokenizes texts concurrently, using up to workers goroutines (unlimited if workers <= 0).
// The returned docs are in the same order as texts.
func (t *Tokenizer) Pipe(ctx context.Context, texts []string, workers int) ([]*api.Doc, error) {
	docs := make([]*api.Doc, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := t.Tokenize(text)
			if err != nil {
				return errors.WithMessagef(err, "while tokenizing text #%d", i)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The group context is cancelled by Wait, so check the caller's.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
