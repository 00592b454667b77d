// Package sentencepiece implements an api.Tokenizer based on a SentencePiece model, for comparison with
// (or as a drop-in replacement of) the rule-based tokenizer.
package sentencepiece

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// metaspace is the character SentencePiece uses in place of spaces: U+2581 (lower one eighth block).
const metaspace = "▁"

// Tokenizer implements api.Tokenizer based on SentencePiece tokenizer by Google.
//
// The Orth of each token is the id of its piece in the SentencePiece vocabulary.
// SentencePiece normalizes whitespace, so runs of whitespace are collapsed into the SpaceAfter flag
// of the preceding token.
type Tokenizer struct {
	proc *esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

// Compile time assert that sentencepiece.Tokenizer implements api.Tokenizer interface.
var _ api.Tokenizer = &Tokenizer{}

// NewFromPath creates a SentencePiece tokenizer from a "tokenizer.model" file, which must be a
// SentencePiece Model proto.
func NewFromPath(modelPath string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", modelPath)
	}
	info := proc.ModelInfo()
	klog.V(2).InfoS("Loaded SentencePiece model", "path", modelPath, "vocabularySize", info.VocabularySize)
	return &Tokenizer{proc: proc, Info: info}, nil
}

// Tokenize implements api.Tokenizer.
func (p *Tokenizer) Tokenize(text string) (*api.Doc, error) {
	doc := &api.Doc{Text: text}
	if text == "" {
		return doc, nil
	}
	encoded := p.proc.Encode(text)
	pieces := make([]string, len(encoded))
	ids := make([]int, len(encoded))
	for i, tok := range encoded {
		pieces[i] = tok.Text
		ids[i] = tok.ID
	}
	doc.Tokens = alignPieces(text, pieces, ids)
	return doc, nil
}

// Encode returns the text encoded into a sequence of ids.
func (p *Tokenizer) Encode(text string) []int {
	encoded := p.proc.Encode(text)
	ids := make([]int, len(encoded))
	for i, tok := range encoded {
		ids[i] = tok.ID
	}
	return ids
}

// Decode returns the text from a sequence of ids.
func (p *Tokenizer) Decode(ids []int) string {
	return p.proc.Decode(ids)
}

// alignPieces recovers the byte span of each piece in text.
//
// Pieces that are only a metaspace produce no token. Consecutive byte-fallback pieces ("<0xC3>", "<0xA9>")
// are merged into one token covering the bytes they stand for.
func alignPieces(text string, pieces []string, ids []int) []api.Token {
	tokens := make([]api.Token, 0, len(pieces))
	pos := 0
	for i := 0; i < len(pieces); i++ {
		piece, hasLeadingSpace := strings.CutPrefix(pieces[i], metaspace)
		if hasLeadingSpace {
			pos = skipSpaces(text, pos)
		}
		if piece == "" {
			continue
		}

		start := pos
		if _, isByte := byteFallback(piece); isByte {
			// Merge the run of byte pieces.
			pos++
			for i+1 < len(pieces) {
				if _, isByte := byteFallback(pieces[i+1]); !isByte {
					break
				}
				pos++
				i++
			}
			pos = min(pos, len(text))
		} else if strings.HasPrefix(text[pos:], piece) {
			pos += len(piece)
		} else if idx := strings.Index(text[pos:wordEnd(text, pos)], piece); idx >= 0 {
			// Normalization may have dropped characters within the word: skip them.
			start = pos + idx
			pos = start + len(piece)
		} else {
			// The piece was rewritten by normalization: advance by as many runes.
			pos = advanceRunes(text, pos, utf8.RuneCountInString(piece))
		}
		if pos == start {
			continue
		}

		tokens = append(tokens, api.Token{
			Span: api.Span{Start: start, End: pos},
			Orth: uint64(ids[i]),
		})
		if pos < len(text) {
			r, _ := utf8.DecodeRuneInString(text[pos:])
			tokens[len(tokens)-1].SpaceAfter = unicode.IsSpace(r)
		}
	}
	return tokens
}

// byteFallback parses pieces of the form "<0xHH>", used for characters not in the vocabulary.
func byteFallback(piece string) (byte, bool) {
	if len(piece) != 6 || !strings.HasPrefix(piece, "<0x") || piece[5] != '>' {
		return 0, false
	}
	b, err := strconv.ParseUint(piece[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(b), true
}

func skipSpaces(text string, pos int) int {
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

// wordEnd returns the position of the first whitespace at or after pos, or len(text).
func wordEnd(text string, pos int) int {
	if idx := strings.IndexFunc(text[pos:], unicode.IsSpace); idx >= 0 {
		return pos + idx
	}
	return len(text)
}

func advanceRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}
