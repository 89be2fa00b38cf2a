package analysis

import (
	"encoding/json"
	"time"

	"cvtailor-backend/internal/cvversions"
	"cvtailor-backend/internal/jdcache"
	"cvtailor-backend/internal/matching"
	"cvtailor-backend/internal/selection"
)

// Step names reported in steps_completed and steps_skipped.
const (
	StepCVSelection  = "cv_selection"
	StepJDExtraction = "jd_extraction"
	StepJDAnalysis   = "jd_analysis"
	StepMatching     = "cv_jd_matching"
	StepTailoring    = "cv_tailoring"
)

// Request is one context-aware analysis request.
type Request struct {
	UserID           string `json:"-"`
	JDURL            string `json:"jd_url"`
	Company          string `json:"company"`
	IsRerun          bool   `json:"is_rerun"`
	IncludeTailoring bool   `json:"include_tailoring"`
}

// CVSelection describes the CV an analysis ran against.
type CVSelection struct {
	CVType    string           `json:"cv_type"`
	Version   int              `json:"version"`
	Source    selection.Source `json:"source"`
	Exists    bool             `json:"exists"`
	JSONPath  string           `json:"json_path,omitempty"`
	TxtPath   string           `json:"txt_path,omitempty"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
}

// JDCacheStatus reports whether the JD analysis came from the cache.
type JDCacheStatus struct {
	Cached         bool          `json:"cached"`
	UseCountBefore int           `json:"use_count_before"`
	CacheStats     jdcache.Stats `json:"cache_stats"`
}

// AnalysisContext records what was used and why. Built once per request.
type AnalysisContext struct {
	Company        string        `json:"company"`
	JDURL          string        `json:"jd_url"`
	IsRerun        bool          `json:"is_rerun"`
	CVSelection    CVSelection   `json:"cv_selection"`
	JDCacheStatus  JDCacheStatus `json:"jd_cache_status"`
	ProcessingTime float64       `json:"processing_time"`
	StepsCompleted []string      `json:"steps_completed"`
	StepsSkipped   []string      `json:"steps_skipped"`
}

// Matching is the headline of the CV/JD match.
type Matching struct {
	MatchedSkills    []string `json:"matched_skills"`
	MissingSkills    []string `json:"missing_skills"`
	MissingPreferred []string `json:"missing_preferred_skills"`
	OverlapPercent   float64  `json:"overlap_percent"`
	ATSScore         int      `json:"ats_score"`
}

// Results holds everything computed for the request.
type Results struct {
	CVSkills           []string                    `json:"cv_skills"`
	JDSkills           []string                    `json:"jd_skills"`
	JDAnalysis         json.RawMessage             `json:"jd_analysis"`
	JobInfo            matching.JobInfo            `json:"job_info"`
	CVJDMatching       *Matching                   `json:"cv_jd_matching"`
	ComponentAnalysis  *matching.ComponentAnalysis `json:"component_analysis"`
	ATSRecommendations []matching.Recommendation   `json:"ats_recommendations"`
	AIRecommendations  json.RawMessage             `json:"ai_recommendations"`
	TailoredCVPath     string                      `json:"tailored_cv_path,omitempty"`
	TailoredCVVersion  int                         `json:"tailored_cv_version,omitempty"`
}

// Result is the success envelope. Success is false when matching could not
// run; Warnings and Errors explain what was skipped.
type Result struct {
	Success         bool            `json:"success"`
	AnalysisContext AnalysisContext `json:"analysis_context"`
	Results         Results         `json:"results"`
	Warnings        []string        `json:"warnings"`
	Errors          []string        `json:"errors"`
}

// ContextView is the pre-flight answer for GET /cv-context/:company.
type ContextView struct {
	Success       bool           `json:"success"`
	Company       string         `json:"company"`
	IsRerun       bool           `json:"is_rerun"`
	CVSelection   CVSelection    `json:"cv_selection"`
	JDCacheStatus *JDCacheStatus `json:"jd_cache_status,omitempty"`
	ErrorType     string         `json:"error_type,omitempty"`
	Error         string         `json:"error,omitempty"`
}

func toCVSelection(sel selection.Selection) CVSelection {
	createdAt := sel.Artifact.CreatedAt
	return CVSelection{
		CVType:    string(sel.Artifact.Kind),
		Version:   sel.Artifact.Version,
		Source:    sel.Source,
		Exists:    true,
		JSONPath:  sel.Artifact.StructuredKey,
		TxtPath:   sel.Artifact.PlainTextKey,
		CreatedAt: &createdAt,
	}
}

// missingSelection is shown by the pre-flight view when no CV qualifies.
func missingSelection(isRerun bool) CVSelection {
	sel := CVSelection{CVType: string(cvversions.KindOriginal), Source: selection.SourceFresh}
	if isRerun {
		sel.CVType = string(cvversions.KindTailored)
		sel.Source = selection.SourceRerunTailored
	}
	return sel
}
