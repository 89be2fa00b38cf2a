package matching

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
)

// aliases folds common spellings onto one canonical skill name.
var aliases = map[string]string{
	"golang":              "go",
	"js":                  "javascript",
	"ts":                  "typescript",
	"k8s":                 "kubernetes",
	"postgres":            "postgresql",
	"psql":                "postgresql",
	"node":                "node.js",
	"nodejs":              "node.js",
	"reactjs":             "react",
	"react.js":            "react",
	"aws cloud":           "aws",
	"amazon web services": "aws",
	"gcp":                 "google cloud",
	"ml":                  "machine learning",
	"cicd":                "ci/cd",
}

// CanonicalSkill lower-cases, trims, and folds known aliases.
func CanonicalSkill(raw string) string {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	s = strings.Trim(s, " .,;:")
	if alias, ok := aliases[s]; ok {
		return alias
	}
	return s
}

// isSkillKey reports object keys whose string leaves are treated as skills.
func isSkillKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "skill") ||
		strings.Contains(k, "technolog") ||
		k == "tools" || k == "languages" || k == "frameworks" || k == "stack"
}

// collectSkills walks decoded JSON and gathers string leaves under skill keys.
// Comma-separated strings are split.
func collectSkills(v any, underSkillKey bool, out map[string]bool) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectSkills(t[k], underSkillKey || isSkillKey(k), out)
		}
	case []any:
		for _, item := range t {
			collectSkills(item, underSkillKey, out)
		}
	case string:
		if !underSkillKey {
			return
		}
		for _, part := range strings.Split(t, ",") {
			if s := CanonicalSkill(part); s != "" && len(s) <= 64 {
				out[s] = true
			}
		}
	}
}

func skillsFromJSON(raw json.RawMessage, keys ...string) []string {
	if len(raw) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	found := make(map[string]bool)
	if len(keys) == 0 {
		collectSkills(doc, false, found)
	} else {
		for _, k := range keys {
			if v, ok := doc[k]; ok {
				collectSkills(v, true, found)
			}
		}
	}
	return sortedKeys(found)
}

// containsTerm reports whether term appears in lower-cased text on word
// boundaries, so "go" does not match "good".
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(text[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if s := CanonicalSkill(item); s != "" {
			seen[s] = true
		}
	}
	return sortedKeys(seen)
}
