package catalog

import (
	"strings"

	"modelgate/config"
	"modelgate/internal/core"
)

// Field selects which descriptor attribute a Rule inspects.
type Field string

const (
	FieldID          Field = "id"
	FieldDisplayName Field = "display_name"
	FieldAny         Field = "any"
)

// Rule excludes a model whose selected field contains Substring, ignoring case.
type Rule struct {
	Substring string
	Field     Field
}

func (r Rule) matches(m core.ModelDescriptor) bool {
	needle := strings.ToLower(r.Substring)
	if needle == "" {
		return false
	}
	id := strings.ToLower(m.ID)
	name := strings.ToLower(m.DisplayName)

	switch r.Field {
	case FieldID:
		return strings.Contains(id, needle)
	case FieldDisplayName:
		return strings.Contains(name, needle)
	default:
		return strings.Contains(id, needle) || strings.Contains(name, needle)
	}
}

var defaultVocabulary = []string{
	// wrong modality
	"tts", "embedding", "image", "audio", "live",
	// not stable
	"exp", "preview",
	// product-specific variants and sub-brands
	"robotics", "computer-use", "gemma", "aqa", "learnlm", "nano-banana",
}

// DefaultRules returns the built-in exclusion vocabulary, applied to both id and display name.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(defaultVocabulary))
	for _, s := range defaultVocabulary {
		rules = append(rules, Rule{Substring: s, Field: FieldAny})
	}
	return rules
}

// RulesFromConfig converts configured exclusions; nil means "use DefaultRules".
func RulesFromConfig(exclusions []config.ExclusionRule) []Rule {
	if exclusions == nil {
		return DefaultRules()
	}
	rules := make([]Rule, 0, len(exclusions))
	for _, e := range exclusions {
		rules = append(rules, Rule{Substring: e.Substring, Field: Field(e.Field)})
	}
	return rules
}

// Excluded reports whether m is unusable: it lacks the generation capability or
// any rule matches it.
func Excluded(m core.ModelDescriptor, rules []Rule) bool {
	if m.ID == "" || !m.SupportsGeneration {
		return true
	}
	for _, r := range rules {
		if r.matches(m) {
			return true
		}
	}
	return false
}

// Filter returns the models not excluded by rules, preserving order.
func Filter(models []core.ModelDescriptor, rules []Rule) []core.ModelDescriptor {
	out := make([]core.ModelDescriptor, 0, len(models))
	for _, m := range models {
		if !Excluded(m, rules) {
			out = append(out, m)
		}
	}
	return out
}
