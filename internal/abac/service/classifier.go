// Package service provides content auto-classification for resources.
package service

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	macDomain "github.com/allisson/accessgate/internal/mac/domain"
)

// Classification is the result of scanning free text.
type Classification struct {
	Label   macDomain.Label
	Matched []string
}

// KeywordConfig holds the per-level keyword lists and the compartment keyword groups.
type KeywordConfig struct {
	Levels       map[macDomain.Level][]string `yaml:"levels"`
	Compartments map[string][]string          `yaml:"compartments"`
}

// DefaultKeywordConfig returns the built-in keyword lists.
func DefaultKeywordConfig() KeywordConfig {
	return KeywordConfig{
		Levels: map[macDomain.Level][]string{
			macDomain.LevelTopSecret:    {"top secret", "national security", "eyes only"},
			macDomain.LevelRestricted:   {"restricted", "security incident", "access codes", "vulnerability"},
			macDomain.LevelConfidential: {"confidential", "salary", "personal data", "medical", "contract terms"},
			macDomain.LevelInternal:     {"internal", "draft", "staff only", "meeting notes"},
			macDomain.LevelPublic:       {"public", "press release", "brochure", "announcement"},
		},
		Compartments: map[string][]string{
			"FINANCIAL":   {"invoice", "budget", "salary", "payment", "bank account", "revenue"},
			"PERSONNEL":   {"employee", "payroll", "performance review", "personal data", "hiring"},
			"VISITOR":     {"visitor", "guest", "badge", "check-in", "appointment"},
			"OPERATIONAL": {"incident", "maintenance", "shift", "facility", "access codes"},
		},
	}
}

// LoadKeywordConfig reads a YAML keyword file. Levels or compartment groups missing
// from the file keep their built-in lists.
func LoadKeywordConfig(path string) (KeywordConfig, error) {
	cfg := DefaultKeywordConfig()

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied configuration path
	if err != nil {
		return cfg, fmt.Errorf("failed to read classifier keywords: %w", err)
	}

	var fileCfg KeywordConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse classifier keywords: %w", err)
	}

	for level, keywords := range fileCfg.Levels {
		if !level.IsValid() {
			return cfg, fmt.Errorf("unknown security level %q in classifier keywords", level)
		}
		cfg.Levels[level] = keywords
	}
	for group, keywords := range fileCfg.Compartments {
		cfg.Compartments[strings.ToUpper(group)] = keywords
	}

	return cfg, nil
}

// searchOrder is the level scan order: the first level with a match wins.
var searchOrder = []macDomain.Level{
	macDomain.LevelTopSecret,
	macDomain.LevelRestricted,
	macDomain.LevelConfidential,
	macDomain.LevelInternal,
	macDomain.LevelPublic,
}

// Classifier scans text for configured keywords. It is safe for concurrent use.
type Classifier struct {
	levels       map[macDomain.Level][]string
	compartments map[string][]string
}

// NewClassifier creates a classifier from a keyword configuration.
func NewClassifier(cfg KeywordConfig) *Classifier {
	c := &Classifier{
		levels:       make(map[macDomain.Level][]string, len(cfg.Levels)),
		compartments: make(map[string][]string, len(cfg.Compartments)),
	}
	for level, keywords := range cfg.Levels {
		c.levels[level] = foldAll(keywords)
	}
	for group, keywords := range cfg.Compartments {
		c.compartments[group] = foldAll(keywords)
	}
	return c
}

// Classify returns the highest level whose keywords appear in text plus every
// compartment group with a match. Text matching nothing is INTERNAL.
func (c *Classifier) Classify(text string) Classification {
	// A Caser is stateful, so each call folds with its own.
	folded := cases.Fold().String(text)
	matched := make([]string, 0)

	level := macDomain.LevelInternal
	for _, candidate := range searchOrder {
		hits := matches(folded, c.levels[candidate])
		if len(hits) > 0 {
			level = candidate
			matched = append(matched, hits...)
			break
		}
	}

	compartments := make([]string, 0)
	for _, group := range slices.Sorted(maps.Keys(c.compartments)) {
		hits := matches(folded, c.compartments[group])
		if len(hits) == 0 {
			continue
		}
		compartments = append(compartments, group)
		for _, hit := range hits {
			if !slices.Contains(matched, hit) {
				matched = append(matched, hit)
			}
		}
	}

	return Classification{
		Label:   macDomain.NewLabel(level, compartments),
		Matched: matched,
	}
}

func matches(text string, keywords []string) []string {
	var hits []string
	for _, keyword := range keywords {
		if keyword != "" && containsWord(text, keyword) {
			hits = append(hits, keyword)
		}
	}
	return hits
}

// containsWord reports whether keyword occurs in text as a whole word. A hyphen binds
// like a letter, so "non-confidential" does not contain "confidential".
func containsWord(text, keyword string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func foldAll(keywords []string) []string {
	fold := cases.Fold()
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		out = append(out, fold.String(strings.TrimSpace(keyword)))
	}
	return out
}
