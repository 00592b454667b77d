package rulebased

import (
	"context"
	"os"

	"github.com/dlclark/regexp2"
	"github.com/go-playground/validator/v10"
	"github.com/gomlx/go-ruletok/internal/files"
	"github.com/gomlx/go-ruletok/tokenizers/api"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// ErrInvalidRuleSet is returned when a rule set fails validation or one of its patterns doesn't compile.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// RuleSet is the serializable form of a tokenizer's rules: regular expression patterns
// (github.com/dlclark/regexp2 syntax, so look-behind and look-ahead are available) and special cases.
//
// Files are YAML; since JSON is valid YAML, JSON files load too.
type RuleSet struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// Prefixes, Suffixes and Infixes are alternatives: each pattern is tried on its own, and the
	// earliest match wins. Prefixes are anchored at the start, suffixes at the end.
	Prefixes []string `yaml:"prefixes,omitempty" json:"prefixes,omitempty" validate:"dive,required"`
	Suffixes []string `yaml:"suffixes,omitempty" json:"suffixes,omitempty" validate:"dive,required"`
	Infixes  []string `yaml:"infixes,omitempty" json:"infixes,omitempty" validate:"dive,required"`

	// TokenMatch and URLMatch must match a whole string.
	TokenMatch string `yaml:"token_match,omitempty" json:"token_match,omitempty"`
	URLMatch   string `yaml:"url_match,omitempty" json:"url_match,omitempty"`

	SpecialCases map[string][]api.Attrs `yaml:"special_cases,omitempty" json:"special_cases,omitempty" validate:"dive,keys,required,endkeys,min=1"`
}

var ruleSetValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structure of the rule set. Patterns and special cases are fully checked when
// the tokenizer is built.
func (rs *RuleSet) Validate() error {
	if err := ruleSetValidator.Struct(rs); err != nil {
		return errors.Wrapf(ErrInvalidRuleSet, "%v", err)
	}
	return nil
}

// ParseRuleSet parses and validates a YAML (or JSON) rule set.
func ParseRuleSet(content []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(content, &rs); err != nil {
		return nil, errors.Wrapf(ErrInvalidRuleSet, "failed to parse: %v", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRuleSet reads a rule set from a YAML (or JSON) file.
func LoadRuleSet(filePath string) (*RuleSet, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rule set file %q", filePath)
	}
	rs, err := ParseRuleSet(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading %q", filePath)
	}
	return rs, nil
}

// Save writes the rule set to filePath as YAML.
// The file is replaced atomically, and concurrent writers (other processes included) are serialized.
// Waiting for another writer is bounded by ctx.
func (rs *RuleSet) Save(ctx context.Context, filePath string) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	content, err := yaml.Marshal(rs)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize rule set %q", rs.Name)
	}
	if err := files.WriteLocked(ctx, filePath, content); err != nil {
		return errors.WithMessagef(err, "while saving rule set %q", rs.Name)
	}
	klog.V(2).InfoS("Saved rule set", "name", rs.Name, "path", filePath)
	return nil
}

// Compile builds the matchers described by the rule set.
func (rs *RuleSet) Compile() (Matchers, error) {
	var m Matchers
	re, err := CompilePrefixes(rs.Prefixes)
	if err != nil {
		return m, errors.Wrapf(ErrInvalidRuleSet, "prefixes of %q: %v", rs.Name, err)
	}
	m.Prefix = PrefixFromRegexp(re)

	if re, err = CompileSuffixes(rs.Suffixes); err != nil {
		return m, errors.Wrapf(ErrInvalidRuleSet, "suffixes of %q: %v", rs.Name, err)
	}
	m.Suffix = SuffixFromRegexp(re)

	if re, err = CompileInfixes(rs.Infixes); err != nil {
		return m, errors.Wrapf(ErrInvalidRuleSet, "infixes of %q: %v", rs.Name, err)
	}
	m.Infix = InfixFromRegexp(re)

	if m.TokenMatch, err = compileWholeMatch(rs.TokenMatch); err != nil {
		return m, errors.Wrapf(ErrInvalidRuleSet, "token_match of %q: %v", rs.Name, err)
	}
	if m.URLMatch, err = compileWholeMatch(rs.URLMatch); err != nil {
		return m, errors.Wrapf(ErrInvalidRuleSet, "url_match of %q: %v", rs.Name, err)
	}
	return m, nil
}

func compileWholeMatch(pattern string) (MatchFunc, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp2.Compile("^(?:"+pattern+")$", regexp2.None)
	if err != nil {
		return nil, err
	}
	return MatchFromRegexp(re), nil
}

// clone returns a deep copy of the rule set.
func (rs *RuleSet) clone() *RuleSet {
	c := &RuleSet{
		Name:       rs.Name,
		Prefixes:   append([]string(nil), rs.Prefixes...),
		Suffixes:   append([]string(nil), rs.Suffixes...),
		Infixes:    append([]string(nil), rs.Infixes...),
		TokenMatch: rs.TokenMatch,
		URLMatch:   rs.URLMatch,
	}
	if rs.SpecialCases != nil {
		c.SpecialCases = make(map[string][]api.Attrs, len(rs.SpecialCases))
		for literal, tokens := range rs.SpecialCases {
			cloned := make([]api.Attrs, len(tokens))
			for i, attrs := range tokens {
				cloned[i] = attrs.Clone()
			}
			c.SpecialCases[literal] = cloned
		}
	}
	return c
}

// NewFromRuleSet creates a tokenizer from a rule set.
func NewFromRuleSet(rs *RuleSet, opts ...Option) (*Tokenizer, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	matchers, err := rs.Compile()
	if err != nil {
		return nil, err
	}
	t, err := New(matchers, rs.SpecialCases, opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "while building tokenizer for rule set %q", rs.Name)
	}
	t.ruleSet = rs.clone()
	t.ruleSet.SpecialCases = nil
	return t, nil
}

// RuleSet returns the rules of a tokenizer created with NewFromRuleSet, including the special cases
// added since. Tokenizers built from plain matchers can't be serialized, and return an error.
func (t *Tokenizer) RuleSet() (*RuleSet, error) {
	if t.ruleSet == nil {
		return nil, errors.New("tokenizer was not built from a rule set")
	}
	rs := t.ruleSet.clone()
	rs.SpecialCases = t.SpecialCases()
	return rs, nil
}
