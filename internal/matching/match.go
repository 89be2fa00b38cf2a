// Package matching scores a CV against an analyzed job description. Every
// function here is deterministic: identical inputs give identical output.
package matching

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	skillsWeight   = 50
	keywordsWeight = 30
	sectionsWeight = 20
)

// JobInfo is the subset of the JD analysis shown alongside the match.
type JobInfo struct {
	Title          string `json:"title,omitempty"`
	Company        string `json:"company,omitempty"`
	Location       string `json:"location,omitempty"`
	Seniority      string `json:"seniority,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
}

// JDProfile is what matching reads out of an opaque JD analysis.
type JDProfile struct {
	Required  []string
	Preferred []string
	Keywords  []string
	JobInfo   JobInfo
}

// AllSkills returns required then preferred, deduplicated and sorted.
func (p JDProfile) AllSkills() []string {
	return uniqueSorted(append(append([]string{}, p.Required...), p.Preferred...))
}

// CV is the selected CV in both representations.
type CV struct {
	Structured json.RawMessage
	PlainText  string
}

// Component is one weighted part of the ATS score.
type Component struct {
	Score   float64  `json:"score"`
	Max     float64  `json:"max"`
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// ComponentAnalysis breaks the ATS score down.
type ComponentAnalysis struct {
	Skills   Component `json:"skills"`
	Keywords Component `json:"keywords"`
	Sections Component `json:"sections"`
}

// Result is the full matching output.
type Result struct {
	CVSkills         []string          `json:"cv_skills"`
	JDSkills         []string          `json:"jd_skills"`
	MatchedSkills    []string          `json:"matched_skills"`
	MissingSkills    []string          `json:"missing_skills"`
	MissingPreferred []string          `json:"missing_preferred_skills"`
	OverlapPercent   float64           `json:"overlap_percent"`
	ATSScore         int               `json:"ats_score"`
	Components       ComponentAnalysis `json:"component_analysis"`
	Recommendations  []Recommendation  `json:"ats_recommendations"`
	JobInfo          JobInfo           `json:"job_info"`
}

var (
	requiredKeys  = []string{"required_skills", "skills", "technical_skills", "must_have", "requirements"}
	preferredKeys = []string{"preferred_skills", "nice_to_have", "optional_skills", "bonus_skills"}
	keywordKeys   = []string{"keywords", "ats_keywords"}
)

var coreSections = []struct {
	name  string
	terms []string
}{
	{"summary", []string{"summary", "profile", "objective", "about"}},
	{"experience", []string{"experience", "work_experience", "employment", "work history"}},
	{"education", []string{"education"}},
	{"skills", []string{"skills", "technical_skills"}},
}

// ParseJD reads skills, keywords, and job info from a JD analysis.
func ParseJD(raw json.RawMessage) JDProfile {
	p := JDProfile{
		Required:  skillsFromJSON(raw, requiredKeys...),
		Preferred: skillsFromJSON(raw, preferredKeys...),
		Keywords:  skillsFromJSON(raw, keywordKeys...),
	}
	if len(p.Required) == 0 && len(p.Preferred) == 0 {
		p.Required = skillsFromJSON(raw)
	}
	p.Preferred = subtract(p.Preferred, p.Required)

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		p.JobInfo = JobInfo{
			Title:          firstString(doc, "job_title", "title", "position"),
			Company:        firstString(doc, "company", "company_name"),
			Location:       firstString(doc, "location"),
			Seniority:      firstString(doc, "seniority", "experience_level", "level"),
			EmploymentType: firstString(doc, "employment_type", "job_type"),
		}
	}
	return p
}

// CVSkills returns the skills listed in the structured CV.
func CVSkills(cv CV) []string {
	return skillsFromJSON(cv.Structured)
}

// Match scores cv against the JD profile.
func Match(cv CV, jd JDProfile) Result {
	cvSkills := CVSkills(cv)
	listed := make(map[string]bool, len(cvSkills))
	for _, s := range cvSkills {
		listed[s] = true
	}
	text := strings.ToLower(cv.PlainText + "\n" + string(cv.Structured))
	has := func(skill string) bool {
		if listed[skill] {
			return true
		}
		for _, variant := range variantsOf(skill) {
			if containsTerm(text, variant) {
				return true
			}
		}
		return false
	}

	matchedReq, missingReq := partition(jd.Required, has)
	matchedPref, missingPref := partition(jd.Preferred, has)

	skillTotal := float64(len(jd.Required)) + 0.5*float64(len(jd.Preferred))
	skillHit := float64(len(matchedReq)) + 0.5*float64(len(matchedPref))
	skills := Component{
		Max:     skillsWeight,
		Matched: uniqueSorted(append(append([]string{}, matchedReq...), matchedPref...)),
		Missing: missingReq,
	}
	if skillTotal > 0 {
		skills.Score = round1(skillsWeight * skillHit / skillTotal)
	}

	keywords := jd.Keywords
	if len(keywords) == 0 {
		keywords = jd.AllSkills()
	}
	matchedKw, missingKw := partition(keywords, has)
	kw := Component{Max: keywordsWeight, Matched: matchedKw, Missing: missingKw}
	if len(keywords) > 0 {
		kw.Score = round1(keywordsWeight * float64(len(matchedKw)) / float64(len(keywords)))
	}

	sec := sectionComponent(cv, text)

	all := jd.AllSkills()
	overlap := 0.0
	if len(all) > 0 {
		overlap = round1(100 * float64(len(matchedReq)+len(matchedPref)) / float64(len(all)))
	}
	score := int(math.Round(skills.Score + kw.Score + sec.Score))

	res := Result{
		CVSkills:         nonNil(cvSkills),
		JDSkills:         nonNil(all),
		MatchedSkills:    nonNil(skills.Matched),
		MissingSkills:    nonNil(missingReq),
		MissingPreferred: nonNil(missingPref),
		OverlapPercent:   overlap,
		ATSScore:         score,
		Components: ComponentAnalysis{
			Skills:   normalizeComponent(skills),
			Keywords: normalizeComponent(kw),
			Sections: normalizeComponent(sec),
		},
		JobInfo: jd.JobInfo,
	}
	res.Recommendations = GenerateRecommendations(RecommendationInput{
		MissingRequired:  missingReq,
		MissingPreferred: missingPref,
		MissingKeywords:  subtract(missingKw, missingReq),
		MissingSections:  sec.Missing,
		ATSScore:         score,
	})
	return res
}

func sectionComponent(cv CV, text string) Component {
	var keys map[string]json.RawMessage
	_ = json.Unmarshal(cv.Structured, &keys)
	lowerKeys := make(map[string]bool, len(keys))
	for k := range keys {
		lowerKeys[strings.ToLower(k)] = true
	}

	c := Component{Max: sectionsWeight}
	for _, section := range coreSections {
		found := false
		for _, term := range section.terms {
			if lowerKeys[term] || containsTerm(text, term) {
				found = true
				break
			}
		}
		if found {
			c.Matched = append(c.Matched, section.name)
		} else {
			c.Missing = append(c.Missing, section.name)
		}
	}
	c.Score = round1(sectionsWeight * float64(len(c.Matched)) / float64(len(coreSections)))
	return c
}

// variantsOf returns skill plus every alias that folds onto it.
func variantsOf(skill string) []string {
	out := []string{skill}
	for alias, canonical := range aliases {
		if canonical == skill {
			out = append(out, alias)
		}
	}
	return out
}

func partition(items []string, pred func(string) bool) (yes, no []string) {
	for _, item := range items {
		if pred(item) {
			yes = append(yes, item)
		} else {
			no = append(no, item)
		}
	}
	return yes, no
}

func subtract(items, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	var out []string
	for _, item := range items {
		if !drop[item] {
			out = append(out, item)
		}
	}
	return out
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func normalizeComponent(c Component) Component {
	c.Matched = nonNil(c.Matched)
	c.Missing = nonNil(c.Missing)
	return c
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
