package matching

import (
	"fmt"
	"sort"
	"strings"
)

const maxRecommendations = 7

// Recommendation is a deterministic suggestion derived from a match.
type Recommendation struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Why      string `json:"why"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
	Order    int    `json:"order"`
}

// RecommendationInput is the part of a match that drives recommendations.
type RecommendationInput struct {
	MissingRequired  []string
	MissingPreferred []string
	MissingKeywords  []string
	MissingSections  []string
	ATSScore         int
}

// GenerateRecommendations ranks, deduplicates, and caps suggestions.
func GenerateRecommendations(input RecommendationInput) []Recommendation {
	candidates := make([]Recommendation, 0, 8)
	mappers := []func(RecommendationInput) []Recommendation{
		fromScore,
		fromMissingRequired,
		fromMissingKeywords,
		fromMissingPreferred,
		fromMissingSections,
	}
	for _, mapper := range mappers {
		candidates = append(candidates, mapper(input)...)
	}

	deduped := dedupe(candidates)
	sortRecommendations(deduped)
	if len(deduped) > maxRecommendations {
		deduped = deduped[:maxRecommendations]
	}
	for i := range deduped {
		deduped[i].Order = i + 1
	}
	return deduped
}

func fromScore(in RecommendationInput) []Recommendation {
	if in.ATSScore >= 50 {
		return nil
	}
	return []Recommendation{{
		ID:       "ATS_LOW_SCORE",
		Category: "ATS",
		Severity: "critical",
		Title:    fmt.Sprintf("ATS match is low (%d/100)", in.ATSScore),
		Why:      "Screening systems commonly filter out CVs below a match threshold.",
		Action:   "Tailor this CV to the job description before applying.",
		Impact:   "high",
	}}
}

func fromMissingRequired(in RecommendationInput) []Recommendation {
	skills := uniqueSorted(in.MissingRequired)
	if len(skills) == 0 {
		return nil
	}
	severity := "warning"
	if len(skills) >= 3 {
		severity = "critical"
	}
	return []Recommendation{{
		ID:       "SKILLS_MISSING_REQUIRED",
		Category: "SKILLS",
		Severity: severity,
		Title:    "Cover required skills",
		Why:      "Required skills are the first thing recruiters and ATS filters check.",
		Action:   "Show evidence of these skills where you have it: " + strings.Join(skills, ", "),
		Impact:   "high",
	}}
}

func fromMissingKeywords(in RecommendationInput) []Recommendation {
	keywords := uniqueSorted(in.MissingKeywords)
	if len(keywords) == 0 {
		return nil
	}
	return []Recommendation{{
		ID:       "ATS_MISSING_JD_KEYWORDS",
		Category: "ATS",
		Severity: "warning",
		Title:    "Add missing job keywords",
		Why:      "Improves ATS match and helps recruiters quickly spot relevant skills.",
		Action:   "Mirror the job description wording in Skills and Experience bullets. Focus on: " + strings.Join(keywords, ", "),
		Impact:   "high",
	}}
}

func fromMissingPreferred(in RecommendationInput) []Recommendation {
	skills := uniqueSorted(in.MissingPreferred)
	if len(skills) == 0 {
		return nil
	}
	return []Recommendation{{
		ID:       "SKILLS_MISSING_PREFERRED",
		Category: "SKILLS",
		Severity: "info",
		Title:    "Mention nice-to-have skills",
		Why:      "Preferred skills separate otherwise similar candidates.",
		Action:   "If you have exposure to them, mention: " + strings.Join(skills, ", "),
		Impact:   "medium",
	}}
}

func fromMissingSections(in RecommendationInput) []Recommendation {
	out := make([]Recommendation, 0, len(in.MissingSections))
	for _, section := range in.MissingSections {
		out = append(out, Recommendation{
			ID:       "STRUCTURE_MISSING_" + strings.ToUpper(section),
			Category: "STRUCTURE",
			Severity: "warning",
			Title:    "Add a " + section + " section",
			Why:      "ATS parsers look for standard section headings.",
			Action:   "Add a clearly headed " + section + " section.",
			Impact:   "medium",
		})
	}
	return out
}

func severityRank(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}

func impactRank(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

func categoryRank(value string) int {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ATS":
		return 4
	case "SKILLS":
		return 3
	case "EXPERIENCE":
		return 2
	case "STRUCTURE":
		return 1
	default:
		return 0
	}
}

func dedupe(items []Recommendation) []Recommendation {
	seen := make(map[string]bool, len(items))
	out := make([]Recommendation, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

func sortRecommendations(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		a := items[i]
		b := items[j]
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) > severityRank(b.Severity)
		}
		if impactRank(a.Impact) != impactRank(b.Impact) {
			return impactRank(a.Impact) > impactRank(b.Impact)
		}
		if categoryRank(a.Category) != categoryRank(b.Category) {
			return categoryRank(a.Category) > categoryRank(b.Category)
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}
