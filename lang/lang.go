// Package lang provides the built-in rule tables, one per language, as rule sets for the rule-based tokenizer.
//
// Tables are YAML files embedded in the binary. A table may extend another one with "base: <name>":
// its patterns are tried before the base ones, and its special cases override the base ones.
package lang

import (
	"embed"
	"path"
	"slices"
	"strings"

	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/gomlx/go-ruletok/tokenizers/rulebased"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

//go:embed data/*.yaml
var dataFS embed.FS

const dataDir = "data"

// ErrUnknownLanguage is returned for a language without a table.
var ErrUnknownLanguage = errors.New("unknown language")

// maxBaseDepth bounds the chain of base tables.
const maxBaseDepth = 8

// table is the file format: a rule set plus an optional base table.
type table struct {
	Base              string `yaml:"base,omitempty"`
	rulebased.RuleSet `yaml:",inline"`
}

// Names returns the names of the available languages, sorted.
func Names() []string {
	entries, err := dataFS.ReadDir(dataDir)
	if err != nil {
		klog.ErrorS(err, "Failed to list embedded language tables")
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Load returns the rule set of the language name (e.g. "en"), merged with its base tables.
func Load(name string) (*rulebased.RuleSet, error) {
	rs, err := load(name, 0)
	if err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "language table %q", name)
	}
	return rs, nil
}

func load(name string, depth int) (*rulebased.RuleSet, error) {
	if depth > maxBaseDepth {
		return nil, errors.Errorf("language table %q: base tables nested more than %d levels (a cycle?)", name, maxBaseDepth)
	}
	content, err := dataFS.ReadFile(path.Join(dataDir, name+".yaml"))
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownLanguage, "%q, available languages: %v", name, Names())
	}
	var t table
	if err := yaml.Unmarshal(content, &t); err != nil {
		return nil, errors.Wrapf(err, "failed to parse language table %q", name)
	}
	if t.Base == "" {
		return &t.RuleSet, nil
	}
	base, err := load(t.Base, depth+1)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading base of language table %q", name)
	}
	return extend(base, &t.RuleSet), nil
}

// extend returns the rules of base overridden and extended by rs.
func extend(base, rs *rulebased.RuleSet) *rulebased.RuleSet {
	merged := &rulebased.RuleSet{
		Name:       rs.Name,
		Prefixes:   slices.Concat(rs.Prefixes, base.Prefixes),
		Suffixes:   slices.Concat(rs.Suffixes, base.Suffixes),
		Infixes:    slices.Concat(rs.Infixes, base.Infixes),
		TokenMatch: rs.TokenMatch,
		URLMatch:   rs.URLMatch,
	}
	if merged.TokenMatch == "" {
		merged.TokenMatch = base.TokenMatch
	}
	if merged.URLMatch == "" {
		merged.URLMatch = base.URLMatch
	}
	merged.SpecialCases = make(map[string][]api.Attrs, len(base.SpecialCases)+len(rs.SpecialCases))
	for literal, tokens := range base.SpecialCases {
		merged.SpecialCases[literal] = tokens
	}
	for literal, tokens := range rs.SpecialCases {
		merged.SpecialCases[literal] = tokens
	}
	return merged
}

// New creates a rule-based tokenizer for the language name.
func New(name string, opts ...rulebased.Option) (*rulebased.Tokenizer, error) {
	rs, err := Load(name)
	if err != nil {
		return nil, err
	}
	return rulebased.NewFromRuleSet(rs, opts...)
}
