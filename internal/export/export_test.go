package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []*api.Doc {
	return []*api.Doc{
		{
			Text: "don't go",
			Tokens: []api.Token{
				{Span: api.Span{Start: 0, End: 2}, Attrs: api.Attrs{api.AttrOrth: "do"}},
				{Span: api.Span{Start: 2, End: 5}, SpaceAfter: true, Attrs: api.Attrs{api.AttrOrth: "n't", api.AttrNorm: "not"}},
				{Span: api.Span{Start: 6, End: 8}, Orth: 42},
			},
		},
		{Text: ""},
		{Text: "ok", Tokens: []api.Token{{Span: api.Span{Start: 0, End: 2}}}},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(testDocs())
	require.Len(t, rows, 4)
	assert.Equal(t, "n't", rows[1].Text)
	assert.Equal(t, "not", rows[1].Norm)
	assert.True(t, rows[1].SpaceAfter)
	assert.Equal(t, uint64(42), rows[2].Orth)
	assert.Equal(t, int32(2), rows[2].Index)
	assert.Equal(t, int32(0), rows[3].Index)

	assert.Equal(t, rows[0].DocID, rows[2].DocID)
	assert.NotEqual(t, rows[0].DocID, rows[3].DocID)
	_, err := uuid.Parse(rows[0].DocID)
	assert.NoError(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	rows := Rows(testDocs())
	filePath := filepath.Join(t.TempDir(), "tokens.parquet")
	require.NoError(t, WriteParquet(filePath, rows))
	got, err := ReadParquet(filePath)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	assert.Equal(t, []byte("PAR1"), buf.Bytes()[:4])

	_, err = ReadParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}
