package matching

import (
	"reflect"
	"testing"
)

func TestGenerateRecommendationsDeterminism(t *testing.T) {
	input := RecommendationInput{
		MissingRequired:  []string{"kafka", "go", "rust"},
		MissingPreferred: []string{"terraform"},
		MissingKeywords:  []string{"event sourcing"},
		MissingSections:  []string{"summary", "education"},
		ATSScore:         31,
	}
	first := GenerateRecommendations(input)
	second := GenerateRecommendations(input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic recommendations ordering")
	}
	if first[0].ID != "ATS_LOW_SCORE" || first[1].ID != "SKILLS_MISSING_REQUIRED" {
		t.Fatalf("unexpected ordering: %s, %s", first[0].ID, first[1].ID)
	}
	for i, rec := range first {
		if rec.Order != i+1 {
			t.Fatalf("expected order %d, got %d", i+1, rec.Order)
		}
	}
}

func TestGenerateRecommendationsCapsAtSeven(t *testing.T) {
	input := RecommendationInput{
		MissingRequired:  []string{"a"},
		MissingPreferred: []string{"b"},
		MissingKeywords:  []string{"c"},
		MissingSections:  []string{"summary", "experience", "education", "skills"},
		ATSScore:         10,
	}
	got := GenerateRecommendations(input)
	if len(got) != 7 {
		t.Fatalf("expected 7 recommendations, got %d", len(got))
	}
	for _, rec := range got {
		if rec.ID == "SKILLS_MISSING_PREFERRED" {
			t.Fatalf("expected the info-level item to be dropped")
		}
	}
}

func TestGenerateRecommendationsHighScoreNoGaps(t *testing.T) {
	if got := GenerateRecommendations(RecommendationInput{ATSScore: 90}); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %+v", got)
	}
}
