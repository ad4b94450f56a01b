// Package entity resolves free-text organization and institution names to
// canonical records with a fixed competitiveness score. Lookup keys are
// folded so that case, spacing, and punctuation variants of the same name
// always resolve to the same record.
package entity

import (
	"strings"
	"unicode"
)

type Category string

const (
	CategoryCompany    Category = "company"
	CategoryUniversity Category = "university"
	CategoryUnknown    Category = "unknown"
)

// FallbackScore is assigned to names absent from the registry.
const FallbackScore = 0.5

type Entity struct {
	CanonicalName string   `json:"canonical_name"`
	Category      Category `json:"category"`
	Score         float64  `json:"score"`
}

var builtinEntities = []Entity{
	{CanonicalName: "OpenAI", Category: CategoryCompany, Score: 0.95},
	{CanonicalName: "Google", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "Apple", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "Meta", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "Microsoft", Category: CategoryCompany, Score: 0.85},
	{CanonicalName: "Amazon", Category: CategoryCompany, Score: 0.85},
	{CanonicalName: "Netflix", Category: CategoryCompany, Score: 0.80},
	{CanonicalName: "Anthropic", Category: CategoryCompany, Score: 0.95},
	{CanonicalName: "Nvidia", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "Goldman Sachs", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "McKinsey", Category: CategoryCompany, Score: 0.90},
	{CanonicalName: "Harvard", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "MIT", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Stanford", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Northwestern", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Yale", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Princeton", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Berkeley", Category: CategoryUniversity, Score: 0.85},
	{CanonicalName: "Oxford", Category: CategoryUniversity, Score: 0.90},
	{CanonicalName: "Cambridge", Category: CategoryUniversity, Score: 0.90},
}

var builtinAliases = map[string]string{
	"fb":                      "Meta",
	"facebook":                "Meta",
	"alphabet":                "Google",
	"aws":                     "Amazon",
	"gs":                      "Goldman Sachs",
	"mckinsey and company":    "McKinsey",
	"uc berkeley":             "Berkeley",
	"northwestern university": "Northwestern",
	"harvard university":      "Harvard",
	"stanford university":     "Stanford",
}

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	byKey map[string]Entity
}

func NewRegistry() *Registry {
	byKey := make(map[string]Entity, len(builtinEntities)+len(builtinAliases))
	for _, e := range builtinEntities {
		byKey[foldKey(e.CanonicalName)] = e
	}
	for alias, canonical := range builtinAliases {
		if e, ok := byKey[foldKey(canonical)]; ok {
			byKey[foldKey(alias)] = e
		}
	}
	return &Registry{byKey: byKey}
}

// Resolve maps a raw name to its canonical entity. Unknown names fold to a
// deterministic fallback: mid-tier score, category unknown, title-cased
// trimmed input as the canonical name. Two inputs whose folded keys match
// always resolve to the same record.
func (r *Registry) Resolve(rawName string) Entity {
	key := foldKey(rawName)
	if key == "" {
		return Entity{CanonicalName: "Unknown", Category: CategoryUnknown, Score: FallbackScore}
	}
	if e, ok := r.byKey[key]; ok {
		return e
	}
	return Entity{
		CanonicalName: titleCase(foldWords(rawName)),
		Category:      CategoryUnknown,
		Score:         FallbackScore,
	}
}

// Known reports whether the folded name is present in the registry table.
func (r *Registry) Known(rawName string) bool {
	_, ok := r.byKey[foldKey(rawName)]
	return ok
}

// foldKey lowercases a name and strips everything but letters and digits,
// so case, spacing, and punctuation variants of one name share one key.
func foldKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldWords is the spaced counterpart of foldKey: separator runs collapse
// to single spaces. It feeds the title-cased fallback name.
func foldWords(raw string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ',' || r == '\'' || r == '&' || r == '/':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func titleCase(folded string) string {
	words := strings.Fields(folded)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
