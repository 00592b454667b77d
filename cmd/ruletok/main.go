// ruletok tokenizes text with a rule-based (or SentencePiece) tokenizer.
//
// Each line of the input is a document. Examples:
//
//	echo "Don't panic!" | ruletok -lang=en
//	ruletok -rules=my_rules.yaml -input=corpus.txt -format=parquet -output=tokens.parquet
//	ruletok -lang=en -explain <<< "(gimme...)"
//	ruletok -lang=en -serve=:8080
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/gomlx/go-ruletok/internal/export"
	"github.com/gomlx/go-ruletok/internal/render"
	"github.com/gomlx/go-ruletok/internal/server"
	"github.com/gomlx/go-ruletok/lang"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/gomlx/go-ruletok/tokenizers/rulebased"
	"github.com/gomlx/go-ruletok/tokenizers/sentencepiece"
	"github.com/gomlx/go-ruletok/vocab"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/klog/v2"
)

var (
	flagLang       = flag.String("lang", "en", fmt.Sprintf("Built-in language table, one of %v.", lang.Names()))
	flagRules      = flag.String("rules", "", "Rule set file (YAML or JSON); takes precedence over -lang.")
	flagSPModel    = flag.String("sp_model", "", "SentencePiece model file: if set, it is used instead of the rule-based tokenizer.")
	flagInput      = flag.String("input", "", "Input file, one document per line. Defaults to stdin.")
	flagOutput     = flag.String("output", "", "Output file. Defaults to stdout.")
	flagFormat     = flag.String("format", "text", "Output format: text, pretty, json or parquet.")
	flagExplain    = flag.Bool("explain", false, "Print the rule that produced each token, instead of the tokens.")
	flagWorkers    = flag.Int("workers", 0, "Number of documents tokenized in parallel. 0 means unlimited.")
	flagCacheSize  = flag.Int("cache_size", 0, "Maximum number of cached chunks. 0 means unbounded, -1 disables the cache.")
	flagWhitespace = flag.String("whitespace", "preserve", "Whitespace policy: preserve or collapse.")
	flagServe      = flag.String("serve", "", "If set, serve the tokenizer over HTTP on this address (e.g. :8080).")
)

func main() {
	klog.InitFlags(flag.CommandLine)
	defer klog.Flush()
	flag.Parse()

	metrics := rulebased.NewMetrics("ruletok")
	tok, err := newTokenizer(metrics)
	if err != nil {
		klog.Fatalf("Failed to create tokenizer: %+v", err)
	}

	if *flagServe != "" {
		if err := serve(*flagServe, tok, metrics); err != nil {
			klog.Fatalf("Server failed: %+v", err)
		}
		return
	}

	texts, err := readInput(*flagInput)
	if err != nil {
		klog.Fatalf("Failed to read input: %+v", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, tok, texts); err != nil {
		klog.Fatalf("Failed: %+v", err)
	}
}

// newTokenizer creates the tokenizer selected by the flags.
func newTokenizer(metrics *rulebased.Metrics) (api.Tokenizer, error) {
	if *flagSPModel != "" {
		return sentencepiece.NewFromPath(*flagSPModel)
	}
	var opts []rulebased.Option
	opts = append(opts, rulebased.WithVocab(vocab.New()), rulebased.WithMetrics(metrics))
	switch {
	case *flagCacheSize < 0:
		opts = append(opts, rulebased.WithoutCache())
	case *flagCacheSize > 0:
		opts = append(opts, rulebased.WithCacheSize(*flagCacheSize))
	}
	switch *flagWhitespace {
	case "preserve":
		opts = append(opts, rulebased.WithWhitespace(rulebased.WhitespacePreserve))
	case "collapse":
		opts = append(opts, rulebased.WithWhitespace(rulebased.WhitespaceCollapse))
	default:
		return nil, errors.Errorf("invalid -whitespace=%q, valid values are preserve or collapse", *flagWhitespace)
	}

	if *flagRules != "" {
		rs, err := rulebased.LoadRuleSet(*flagRules)
		if err != nil {
			return nil, err
		}
		return rulebased.NewFromRuleSet(rs, opts...)
	}
	return lang.New(*flagLang, opts...)
}

// readInput returns the lines of the input file (memory-mapped), or of stdin if filePath is empty.
func readInput(filePath string) ([]string, error) {
	if filePath == "" {
		content, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read stdin")
		}
		return splitLines(string(content)), nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", filePath)
	}
	if info.Size() == 0 {
		return nil, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to memory-map %q", filePath)
	}
	defer func() {
		if err := m.Unmap(); err != nil {
			klog.Warningf("Failed to unmap %q: %v", filePath, err)
		}
	}()
	// The lines are copied out of the mapping, since it is unmapped on return.
	return splitLines(string(m)), nil
}

// splitLines splits content into lines, without the line terminators. A final empty line is dropped.
func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// tokenizeAll tokenizes the texts, in parallel when the tokenizer supports it.
func tokenizeAll(ctx context.Context, tok api.Tokenizer, texts []string, workers int) ([]*api.Doc, error) {
	if rb, ok := tok.(*rulebased.Tokenizer); ok {
		return rb.Pipe(ctx, texts, workers)
	}
	docs := make([]*api.Doc, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := tok.Tokenize(text)
		if err != nil {
			return nil, errors.WithMessagef(err, "while tokenizing line #%d", i+1)
		}
		docs[i] = doc
	}
	return docs, nil
}

func run(ctx context.Context, tok api.Tokenizer, texts []string) (err error) {
	var w io.Writer = os.Stdout
	if *flagOutput != "" && *flagFormat != "parquet" {
		f, createErr := os.Create(*flagOutput)
		if createErr != nil {
			return errors.Wrapf(createErr, "failed to create %q", *flagOutput)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = errors.Wrapf(closeErr, "failed to close %q", *flagOutput)
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	defer func() {
		if flushErr := bw.Flush(); flushErr != nil && err == nil {
			err = errors.Wrap(flushErr, "failed to write output")
		}
	}()

	if *flagExplain {
		rb, ok := tok.(*rulebased.Tokenizer)
		if !ok {
			return errors.New("-explain is only supported by the rule-based tokenizer")
		}
		return explain(bw, rb, texts)
	}

	start := time.Now()
	docs, err := tokenizeAll(ctx, tok, texts, *flagWorkers)
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Tokenized", "documents", len(docs), "elapsed", time.Since(start))
	return write(bw, *flagFormat, *flagOutput, docs)
}

func explain(w io.Writer, tok *rulebased.Tokenizer, texts []string) error {
	for _, text := range texts {
		explanations, err := tok.Explain(text)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, render.Explanations(explanations)); err != nil {
			return errors.Wrap(err, "failed to write output")
		}
	}
	return nil
}

// write outputs the docs in the given format. Parquet goes to outputPath if set.
func write(w io.Writer, format, outputPath string, docs []*api.Doc) error {
	switch format {
	case "text":
		for _, doc := range docs {
			if _, err := fmt.Fprintln(w, strings.Join(doc.Words(), " | ")); err != nil {
				return errors.Wrap(err, "failed to write output")
			}
		}
	case "pretty":
		for _, doc := range docs {
			if _, err := fmt.Fprintln(w, render.Tokens(doc)); err != nil {
				return errors.Wrap(err, "failed to write output")
			}
		}
	case "json":
		enc := json.NewEncoder(w)
		for _, row := range export.Rows(docs) {
			if err := enc.Encode(row); err != nil {
				return errors.Wrap(err, "failed to write output")
			}
		}
	case "parquet":
		rows := export.Rows(docs)
		if outputPath != "" {
			return export.WriteParquet(outputPath, rows)
		}
		return export.Write(w, rows)
	default:
		return errors.Errorf("invalid -format=%q, valid values are text, pretty, json or parquet", format)
	}
	return nil
}

func serve(addr string, tok api.Tokenizer, metrics *rulebased.Metrics) error {
	rb, ok := tok.(*rulebased.Tokenizer)
	if !ok {
		return errors.New("-serve is only supported by the rule-based tokenizer")
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := server.NewHTTPServer(addr, rb, *flagWorkers, registry)

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("Serving tokenizer", "address", addr)
		errCh <- srv.ListenAndServe()
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server stopped")
		}
		return nil
	case sig := <-sigCh:
		klog.InfoS("Shutting down", "signal", sig)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
