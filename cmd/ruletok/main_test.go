package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/go-ruletok/internal/export"
	"github.com/gomlx/go-ruletok/lang"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\r\n\nb\n"))
	assert.Equal(t, []string{"a"}, splitLines("a"))
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("Hello, world!\nDon't panic.\n"), 0644))
	lines, err := readInput(filePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello, world!", "Don't panic."}, lines)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	lines, err = readInput(empty)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = readInput(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func tokenizeTestLines(t *testing.T) []*api.Doc {
	tok, err := lang.New("en")
	require.NoError(t, err)
	docs, err := tokenizeAll(context.Background(), tok, []string{"Hello, world!", "Don't panic."}, 2)
	require.NoError(t, err)
	return docs
}

func TestWrite(t *testing.T) {
	docs := tokenizeTestLines(t)

	var buf bytes.Buffer
	require.NoError(t, write(&buf, "text", "", docs))
	assert.Equal(t, "Hello | , | world | !\nDo | n't | panic | .\n", buf.String())

	buf.Reset()
	require.NoError(t, write(&buf, "json", "", docs))
	dec := json.NewDecoder(&buf)
	var rows []export.TokenRow
	for dec.More() {
		var row export.TokenRow
		require.NoError(t, dec.Decode(&row))
		rows = append(rows, row)
	}
	require.Len(t, rows, 8)
	assert.Equal(t, "n't", rows[5].Text)
	assert.Equal(t, "not", rows[5].Norm)

	parquetPath := filepath.Join(t.TempDir(), "tokens.parquet")
	require.NoError(t, write(&buf, "parquet", parquetPath, docs))
	rows, err := export.ReadParquet(parquetPath)
	require.NoError(t, err)
	assert.Len(t, rows, 8)

	assert.Error(t, write(&buf, "xml", "", docs))
}
