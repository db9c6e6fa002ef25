// Package vocab holds the static matching vocabulary: topic clusters,
// incompatible sector pairs, sector keywords, field labels, deal-size tables
// and domain keyword patterns. The default tables are embedded YAML.
package vocab

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var defaultYAML []byte

// shortTermLen is the rune length at or below which a term must match a whole word.
const shortTermLen = 3

// Cluster is a named list of synonymous terms.
type Cluster struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Labels lists the line labels recognized by the feature extractor.
type Labels struct {
	CoreActivity []string `yaml:"core_activity"`
	Sector       []string `yaml:"sector"`
	Products     []string `yaml:"products"`
	Sales        []string `yaml:"sales"`
	ServiceModel []string `yaml:"service_model"`
	Customers    []string `yaml:"customers"`
	DealSize     []string `yaml:"deal_size"`
}

// Flags lists the terms that set each boolean profile flag.
type Flags struct {
	Dealer           []string `yaml:"dealer"`
	Tender           []string `yaml:"tender"`
	EngineerToOrder  []string `yaml:"engineer_to_order"`
	ConfigureToOrder []string `yaml:"configure_to_order"`
}

// ActivityRule supplies a default core activity when every required term is present.
type ActivityRule struct {
	Requires []string `yaml:"requires"`
	Activity string   `yaml:"activity"`
}

// SizeLabel maps a qualitative deal-size term to a tier (1..4).
type SizeLabel struct {
	Term string `yaml:"term"`
	Tier int    `yaml:"tier"`
}

// Vocabulary is the full set of matching tables.
type Vocabulary struct {
	Clusters      []Cluster      `yaml:"clusters"`
	Incompatible  [][2]string    `yaml:"incompatible"`
	Sectors       []Cluster      `yaml:"sectors"`
	Labels        Labels         `yaml:"labels"`
	Flags         Flags          `yaml:"flags"`
	Keywords      []string       `yaml:"keywords"`
	ActivityRules []ActivityRule `yaml:"activity_rules"`
	DealSizes     []SizeLabel    `yaml:"deal_sizes"`
	NotAvailable  []string       `yaml:"not_available"`

	keywordRe *regexp.Regexp
}

var (
	defaultOnce  sync.Once
	defaultVocab *Vocabulary
)

// Default returns the embedded vocabulary. It panics if the embedded tables
// are invalid, which can only happen with a broken build.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		v, err := Parse(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultVocab = v
	})
	return defaultVocab
}

// Load reads and validates a vocabulary from r.
func Load(r io.Reader) (*Vocabulary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "vocab: read")
	}
	return Parse(data)
}

// Parse decodes and validates a YAML vocabulary.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "vocab: decode yaml")
	}
	if err := v.validate(); err != nil {
		return nil, err
	}

	quoted := make([]string, 0, len(v.Keywords))
	for _, kw := range v.Keywords {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) > 0 {
		re, err := regexp.Compile(`\b(` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, eris.Wrap(err, "vocab: compile keyword pattern")
		}
		v.keywordRe = re
	}
	return &v, nil
}

func (v *Vocabulary) validate() error {
	var errs []string
	if len(v.Clusters) == 0 {
		errs = append(errs, "at least one cluster is required")
	}
	for i, c := range v.Clusters {
		if c.Name == "" || len(c.Terms) == 0 {
			errs = append(errs, fmt.Sprintf("cluster %d needs a name and terms", i))
		}
	}
	for i, s := range v.Sectors {
		if s.Name == "" || len(s.Terms) == 0 {
			errs = append(errs, fmt.Sprintf("sector %d needs a name and terms", i))
		}
	}
	for i, p := range v.Incompatible {
		if p[0] == "" || p[1] == "" {
			errs = append(errs, fmt.Sprintf("incompatible pair %d has an empty side", i))
		}
	}
	for _, s := range v.DealSizes {
		if s.Tier < 1 || s.Tier > 4 {
			errs = append(errs, fmt.Sprintf("deal size %q tier must be between 1 and 4", s.Term))
		}
	}
	for i, r := range v.ActivityRules {
		if len(r.Requires) == 0 || r.Activity == "" {
			errs = append(errs, fmt.Sprintf("activity rule %d needs requires and activity", i))
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("vocab: invalid tables: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Hit reports whether text mentions any term of the cluster.
func (c Cluster) Hit(text string) bool {
	return ContainsAny(text, c.Terms)
}

// MatchKeywords returns the distinct domain keywords found in lower-cased
// text, in first-seen order.
func (v *Vocabulary) MatchKeywords(text string) []string {
	if v.keywordRe == nil {
		return nil
	}
	found := v.keywordRe.FindAllString(text, -1)
	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, kw := range found {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// SizeTier returns the tier of the first qualitative deal-size label found
// in lower-cased text, or 0.
func (v *Vocabulary) SizeTier(text string) int {
	for _, s := range v.DealSizes {
		if Contains(text, s.Term) {
			return s.Tier
		}
	}
	return 0
}

// IsNotAvailable reports whether value is empty or a "not available" sentinel.
func (v *Vocabulary) IsNotAvailable(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return true
	}
	for _, s := range v.NotAvailable {
		if value == s {
			return true
		}
	}
	return false
}

// DefaultActivity returns the activity of the first rule whose terms all
// appear in lower-cased text.
func (v *Vocabulary) DefaultActivity(text string) string {
	for _, r := range v.ActivityRules {
		ok := true
		for _, term := range r.Requires {
			if !Contains(text, term) {
				ok = false
				break
			}
		}
		if ok {
			return r.Activity
		}
	}
	return ""
}

// Contains reports whether lower-cased text mentions term. Short terms must
// match a whole word so "it" does not fire inside "kernactiviteit".
func Contains(text, term string) bool {
	if term == "" {
		return false
	}
	if utf8.RuneCountInString(term) > shortTermLen {
		return strings.Contains(text, term)
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if isBoundary(text, start, true) && isBoundary(text, end, false) {
			return true
		}
		offset = start + 1
	}
	return false
}

// ContainsAny reports whether text mentions any of terms.
func ContainsAny(text string, terms []string) bool {
	for _, t := range terms {
		if Contains(text, t) {
			return true
		}
	}
	return false
}

func isBoundary(text string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(text[:pos])
	} else {
		if pos >= len(text) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(text[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
