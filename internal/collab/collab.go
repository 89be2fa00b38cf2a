// Package collab talks to the services that analyze job descriptions and
// tailor CVs. Both are black boxes that exchange JSON.
package collab

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConfigured is returned by collaborators without an endpoint.
var ErrNotConfigured = errors.New("collaborator not configured")

// JDRequest asks for extraction and analysis of one job description.
type JDRequest struct {
	JDURL   string `json:"jd_url"`
	Company string `json:"company"`
}

// JDAnalyzer extracts and analyzes a job description. The result must be a
// JSON object.
type JDAnalyzer interface {
	AnalyzeJD(ctx context.Context, req JDRequest) (json.RawMessage, error)
}

// TailorRequest carries everything the tailoring service needs.
type TailorRequest struct {
	Company         string          `json:"company"`
	JDURL           string          `json:"jd_url"`
	CV              json.RawMessage `json:"cv"`
	CVText          string          `json:"cv_text"`
	JDAnalysis      json.RawMessage `json:"jd_analysis"`
	MatchedSkills   []string        `json:"matched_skills"`
	MissingSkills   []string        `json:"missing_skills"`
	Recommendations []string        `json:"recommendations"`
}

// TailorResponse is a tailored CV in both representations.
type TailorResponse struct {
	Structured        json.RawMessage `json:"tailored_cv"`
	PlainText         string          `json:"tailored_cv_text"`
	AIRecommendations json.RawMessage `json:"ai_recommendations,omitempty"`
}

// Tailor rewrites a CV for a job description.
type Tailor interface {
	TailorCV(ctx context.Context, req TailorRequest) (TailorResponse, error)
}

// Unconfigured stands in for a collaborator whose URL is not set.
type Unconfigured struct{}

func (Unconfigured) AnalyzeJD(ctx context.Context, req JDRequest) (json.RawMessage, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) TailorCV(ctx context.Context, req TailorRequest) (TailorResponse, error) {
	return TailorResponse{}, ErrNotConfigured
}

var (
	_ JDAnalyzer = Unconfigured{}
	_ Tailor     = Unconfigured{}
)
