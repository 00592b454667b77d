// Package export flattens tokenized documents into rows, and stores them as Parquet files.
package export

import (
	"io"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// TokenRow is one token of one document.
type TokenRow struct {
	DocID      string `parquet:"doc_id,dict" json:"doc_id"`
	Index      int32  `parquet:"index" json:"index"`
	Start      int64  `parquet:"start" json:"start"`
	End        int64  `parquet:"end" json:"end"`
	Text       string `parquet:"text" json:"text"`
	SpaceAfter bool   `parquet:"space_after" json:"space_after"`
	Orth       uint64 `parquet:"orth" json:"orth,omitempty"`
	Norm       string `parquet:"norm,optional" json:"norm,omitempty"`
}

// Rows flattens docs into rows. Each doc gets a new random UUID, reported in the DocID of its rows.
func Rows(docs []*api.Doc) []TokenRow {
	var n int
	for _, doc := range docs {
		n += doc.Len()
	}
	rows := make([]TokenRow, 0, n)
	for _, doc := range docs {
		docID := uuid.NewString()
		for i, tok := range doc.Tokens {
			rows = append(rows, TokenRow{
				DocID:      docID,
				Index:      int32(i),
				Start:      int64(tok.Start),
				End:        int64(tok.End),
				Text:       doc.TokenText(i),
				SpaceAfter: tok.SpaceAfter,
				Orth:       tok.Orth,
				Norm:       tok.Attrs[api.AttrNorm],
			})
		}
	}
	return rows
}

// WriteParquet writes rows to filePath.
func WriteParquet(filePath string, rows []TokenRow) error {
	if err := parquet.WriteFile(filePath, rows); err != nil {
		return errors.Wrapf(err, "failed to write %d rows to %q", len(rows), filePath)
	}
	return nil
}

// Write writes rows as a Parquet stream to w.
func Write(w io.Writer, rows []TokenRow) error {
	if err := parquet.Write(w, rows); err != nil {
		return errors.Wrapf(err, "failed to write %d rows", len(rows))
	}
	return nil
}

// ReadParquet reads back the rows written by WriteParquet.
func ReadParquet(filePath string) ([]TokenRow, error) {
	rows, err := parquet.ReadFile[TokenRow](filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rows from %q", filePath)
	}
	return rows, nil
}
