// Package server exposes a tokenizer over HTTP.
//
//	POST /v1/tokenize   {"text": "...", "explain": false} or {"texts": ["...", "..."]}
//	GET  /healthz
//	GET  /metrics       Prometheus metrics
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/gomlx/go-ruletok/tokenizers/rulebased"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

// MaxRequestBytes bounds the size of a request body.
const MaxRequestBytes = 8 << 20

// TokenizeRequest is the body of POST /v1/tokenize. Exactly one of Text and Texts must be given.
// Text is a pointer so that an empty text is a valid request: it yields an empty Doc.
type TokenizeRequest struct {
	Text    *string  `json:"text" validate:"required_without=Texts,excluded_with=Texts"`
	Texts   []string `json:"texts" validate:"omitempty,max=1024"`
	Explain bool     `json:"explain" validate:"excluded_with=Texts"`
}

// Token is the JSON form of an api.Token.
type Token struct {
	Text       string    `json:"text"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	SpaceAfter bool      `json:"space_after,omitempty"`
	Attrs      api.Attrs `json:"attrs,omitempty"`
}

// Explanation is the JSON form of a rulebased.Explanation.
type Explanation struct {
	Rule string `json:"rule"`
	Text string `json:"text"`
}

// Doc is the JSON form of an api.Doc.
type Doc struct {
	Tokens       []Token       `json:"tokens"`
	Explanations []Explanation `json:"explanations,omitempty"`
}

// TokenizeResponse is the answer to POST /v1/tokenize: Doc for a single text, Docs for Texts.
type TokenizeResponse struct {
	*Doc
	Docs []*Doc `json:"docs,omitempty"`
}

type httpServer struct {
	tokenizer *rulebased.Tokenizer
	workers   int
	validate  *validator.Validate
}

// NewHandler returns the HTTP handler serving tok. Batches are tokenized with up to workers goroutines.
// Metrics are served from gatherer, if not nil.
func NewHandler(tok *rulebased.Tokenizer, workers int, gatherer prometheus.Gatherer) http.Handler {
	s := &httpServer{
		tokenizer: tok,
		workers:   workers,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	r := mux.NewRouter()
	r.HandleFunc("/v1/tokenize", s.tokenize).Methods("POST")
	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	return r
}

// NewHTTPServer returns a server listening on addr, see NewHandler.
func NewHTTPServer(addr string, tok *rulebased.Tokenizer, workers int, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: NewHandler(tok, workers, gatherer),
	}
}

func (s *httpServer) tokenize(w http.ResponseWriter, r *http.Request) {
	var req TokenizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	var resp TokenizeResponse
	if req.Texts != nil {
		docs, err := s.tokenizer.Pipe(r.Context(), req.Texts, s.workers)
		if err != nil {
			klog.ErrorS(err, "Failed to tokenize batch", "texts", len(req.Texts))
			http.Error(w, fmt.Sprintf("Failed to tokenize: %v", err), http.StatusInternalServerError)
			return
		}
		resp.Docs = make([]*Doc, len(docs))
		for i, doc := range docs {
			resp.Docs[i] = toJSON(doc)
		}
	} else {
		text := *req.Text
		doc, err := s.tokenizer.Tokenize(text)
		if err != nil {
			klog.ErrorS(err, "Failed to tokenize", "length", len(text))
			http.Error(w, fmt.Sprintf("Failed to tokenize: %v", err), http.StatusInternalServerError)
			return
		}
		resp.Doc = toJSON(doc)
		if req.Explain {
			explanations, err := s.tokenizer.Explain(text)
			if err != nil {
				klog.ErrorS(err, "Failed to explain", "length", len(text))
				http.Error(w, fmt.Sprintf("Failed to explain: %v", err), http.StatusInternalServerError)
				return
			}
			for _, e := range explanations {
				resp.Explanations = append(resp.Explanations, Explanation{Rule: e.Rule, Text: e.Text})
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		klog.ErrorS(err, "Failed to write response")
	}
}

func toJSON(doc *api.Doc) *Doc {
	out := &Doc{Tokens: make([]Token, len(doc.Tokens))}
	for i, tok := range doc.Tokens {
		out.Tokens[i] = Token{
			Text:       doc.TokenText(i),
			Start:      tok.Start,
			End:        tok.End,
			SpaceAfter: tok.SpaceAfter,
			Attrs:      tok.Attrs,
		}
	}
	return out
}

func (s *httpServer) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "healthy")
}
