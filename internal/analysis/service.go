package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"cvtailor-backend/internal/collab"
	"cvtailor-backend/internal/cvversions"
	"cvtailor-backend/internal/jdcache"
	"cvtailor-backend/internal/matching"
	"cvtailor-backend/internal/normalize"
	"cvtailor-backend/internal/selection"
	"cvtailor-backend/internal/shared/metrics"
	"cvtailor-backend/internal/shared/telemetry"
)

const (
	defaultJDTimeout     = 60 * time.Second
	defaultTailorTimeout = 120 * time.Second
)

// CVStore is what the orchestrator needs from the CV version store.
type CVStore interface {
	selection.Reader
	Load(ctx context.Context, a cvversions.Artifact) (cvversions.Content, error)
	RecordTailored(ctx context.Context, userID, company string, content cvversions.Content) (cvversions.Artifact, error)
}

// Service runs context-aware analyses. It keeps no per-request state; the
// singleflight group only coalesces identical in-flight JD analyses.
type Service struct {
	CVs           CVStore
	Cache         *jdcache.Cache
	Analyzer      collab.JDAnalyzer
	Tailor        collab.Tailor
	Policy        selection.Policy
	JDTimeout     time.Duration
	TailorTimeout time.Duration

	now     func() time.Time
	flights singleflight.Group
}

// NewService constructs a Service. Zero timeouts take the defaults.
func NewService(cvs CVStore, cache *jdcache.Cache, analyzer collab.JDAnalyzer, tailor collab.Tailor, policy selection.Policy) *Service {
	if analyzer == nil {
		analyzer = collab.Unconfigured{}
	}
	if tailor == nil {
		tailor = collab.Unconfigured{}
	}
	return &Service{
		CVs:           cvs,
		Cache:         cache,
		Analyzer:      analyzer,
		Tailor:        tailor,
		Policy:        policy,
		JDTimeout:     defaultJDTimeout,
		TailorTimeout: defaultTailorTimeout,
		now:           time.Now,
	}
}

// Analyze selects a CV, reuses or computes the JD analysis, matches, and
// optionally tailors. Only selection and input errors are returned; later
// failures land in the envelope's warnings and errors.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	start := s.clock()
	jdURL, company, err := s.resolveInput(req.UserID, req.JDURL, req.Company)
	if err != nil {
		return Result{}, err
	}
	run := newRunState(req.UserID, company, jdURL)
	log := func(step, outcome string, extra map[string]any) {
		fields := map[string]any{
			"user_id": req.UserID,
			"company": company,
			"step":    step,
			"outcome": outcome,
		}
		for k, v := range extra {
			fields[k] = v
		}
		telemetry.Info("analysis.step", fields)
	}

	// 1. CV selection.
	sel, err := s.Policy.Select(ctx, s.CVs, req.UserID, company, req.IsRerun)
	if err != nil {
		metrics.IncAnalysisFailed()
		log(StepCVSelection, "error", map[string]any{"error": err.Error()})
		return Result{}, err
	}
	content, err := s.CVs.Load(ctx, sel.Artifact)
	if err != nil {
		metrics.IncAnalysisFailed()
		return Result{}, fmt.Errorf("load selected cv: %w", err)
	}
	run.completed(StepCVSelection)
	log(StepCVSelection, sel.Source.String(), map[string]any{"version": sel.Artifact.Version})

	// 2. JD cache, then JD analysis on a miss.
	cacheStatus, analysis := s.resolveJDAnalysis(ctx, run)
	log(StepJDAnalysis, fmt.Sprintf("cached=%t", cacheStatus.Cached), map[string]any{"use_count": cacheStatus.CacheStats.UseCount})

	// 3. Matching.
	results := Results{
		CVSkills:           matching.CVSkills(matching.CV{Structured: content.Structured, PlainText: content.PlainText}),
		JDSkills:           []string{},
		JDAnalysis:         analysis,
		ATSRecommendations: []matching.Recommendation{},
		AIRecommendations:  json.RawMessage("[]"),
	}
	if results.CVSkills == nil {
		results.CVSkills = []string{}
	}
	var match matching.Result
	matched := analysis != nil
	if matched {
		jd := matching.ParseJD(analysis)
		match = matching.Match(matching.CV{Structured: content.Structured, PlainText: content.PlainText}, jd)
		results.JDSkills = match.JDSkills
		results.JobInfo = match.JobInfo
		results.CVJDMatching = &Matching{
			MatchedSkills:    match.MatchedSkills,
			MissingSkills:    match.MissingSkills,
			MissingPreferred: match.MissingPreferred,
			OverlapPercent:   match.OverlapPercent,
			ATSScore:         match.ATSScore,
		}
		components := match.Components
		results.ComponentAnalysis = &components
		results.ATSRecommendations = match.Recommendations
		run.completed(StepMatching)
		log(StepMatching, "ok", map[string]any{"ats_score": match.ATSScore})
	} else {
		run.skipped(StepMatching)
		run.errorf("CV/JD matching skipped: no JD analysis available")
	}

	// 4. Tailoring.
	switch {
	case !req.IncludeTailoring:
		run.skipped(StepTailoring)
	case !matched:
		run.skipped(StepTailoring)
		run.warnf("CV tailoring skipped: matching did not run")
	default:
		s.tailor(ctx, run, content, analysis, match, &results)
		log(StepTailoring, "done", map[string]any{"tailored_version": results.TailoredCVVersion})
	}

	// A caller that has gone away gets nothing; cached work stays cached.
	if err := ctx.Err(); err != nil {
		metrics.IncAnalysisFailed()
		return Result{}, err
	}

	elapsed := s.clock().Sub(start)
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	if matched {
		metrics.IncAnalysisCompleted()
	} else {
		metrics.IncAnalysisFailed()
	}
	telemetry.Info("analysis.complete", map[string]any{
		"user_id":     req.UserID,
		"company":     company,
		"source":      sel.Source.String(),
		"cached":      cacheStatus.Cached,
		"success":     matched,
		"duration_ms": elapsed.Milliseconds(),
		"warnings":    len(run.warnings),
		"errors":      len(run.errors),
	})

	return Result{
		Success: matched,
		AnalysisContext: AnalysisContext{
			Company:        company,
			JDURL:          jdURL,
			IsRerun:        req.IsRerun,
			CVSelection:    toCVSelection(sel),
			JDCacheStatus:  cacheStatus,
			ProcessingTime: elapsed.Seconds(),
			StepsCompleted: run.stepsCompleted,
			StepsSkipped:   run.stepsSkipped,
		},
		Results:  results,
		Warnings: run.warnings,
		Errors:   run.errors,
	}, nil
}

// Context reports the CV that an analysis would use, plus cache stats when a
// JD URL is given. It never runs analysis and never counts a cache use.
func (s *Service) Context(ctx context.Context, userID, company, jdURL string, isRerun bool) (ContextView, error) {
	company = normalize.Company(company)
	if strings.TrimSpace(userID) == "" || company == "" {
		return ContextView{}, ErrInvalidInput
	}
	view := ContextView{Company: company, IsRerun: isRerun}

	if strings.TrimSpace(jdURL) != "" {
		canonical, err := normalize.JDURL(jdURL)
		if err != nil {
			return ContextView{}, ErrInvalidJDURL
		}
		st, err := s.Cache.Stats(ctx, userID, company, canonical)
		if err != nil {
			return ContextView{}, fmt.Errorf("jd cache stats: %w", err)
		}
		view.JDCacheStatus = &JDCacheStatus{
			Cached:         st.HasCache && st.CacheValid,
			UseCountBefore: st.UseCount,
			CacheStats:     st,
		}
	}

	sel, err := s.Policy.Select(ctx, s.CVs, userID, company, isRerun)
	if err != nil {
		kind := ErrorType(err)
		if kind == "" {
			return ContextView{}, err
		}
		view.CVSelection = missingSelection(isRerun)
		view.ErrorType = kind
		view.Error = err.Error()
		return view, nil
	}
	view.Success = true
	view.CVSelection = toCVSelection(sel)
	return view, nil
}

func (s *Service) resolveInput(userID, rawURL, rawCompany string) (string, string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", "", ErrInvalidInput
	}
	jdURL, err := normalize.JDURL(rawURL)
	if err != nil {
		return "", "", ErrInvalidJDURL
	}
	company := normalize.Company(rawCompany)
	if company == "" {
		company = normalize.CompanyFromURL(jdURL)
	}
	if company == "" {
		return "", "", fmt.Errorf("%w: company is required", ErrInvalidInput)
	}
	return jdURL, company, nil
}

type flightResult struct {
	analysis json.RawMessage
	entry    jdcache.Entry
	stored   bool
	storeErr error
}

func (s *Service) resolveJDAnalysis(ctx context.Context, run *runState) (JDCacheStatus, json.RawMessage) {
	entry, hit, err := s.Cache.Lookup(ctx, run.userID, run.company, run.jdURL)
	if err != nil {
		run.warnf("JD cache unavailable: %v", err)
	}
	if hit {
		run.skipped(StepJDExtraction)
		run.skipped(StepJDAnalysis)
		return JDCacheStatus{
			Cached:         true,
			UseCountBefore: entry.UseCount - 1,
			CacheStats:     s.Cache.StatsOf(entry, true),
		}, entry.Analysis
	}

	status := JDCacheStatus{Cached: false}
	res, err := s.analyzeJD(ctx, run)
	if err != nil {
		run.skipped(StepJDExtraction)
		run.skipped(StepJDAnalysis)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			run.warnf("JD analysis timed out after %s", s.jdTimeout())
		case errors.Is(err, collab.ErrNotConfigured):
			run.errorf("JD analysis service is not configured")
		default:
			run.errorf("JD analysis failed: %v", err)
		}
		if st, statErr := s.Cache.Stats(ctx, run.userID, run.company, run.jdURL); statErr == nil {
			status.CacheStats = st
			status.UseCountBefore = st.UseCount
		}
		return status, nil
	}

	run.completed(StepJDExtraction)
	run.completed(StepJDAnalysis)
	if res.storeErr != nil {
		run.warnf("JD analysis not cached: %v", res.storeErr)
	}
	if res.stored {
		status.CacheStats = s.Cache.StatsOf(res.entry, true)
	} else {
		status.CacheStats = s.Cache.StatsOf(jdcache.Entry{}, false)
	}
	return status, res.analysis
}

// analyzeJD runs the analyzer once per cache key across concurrent requests.
// The call is detached from the caller so a finished analysis is cached even
// if the caller has disconnected; the timeout still applies.
func (s *Service) analyzeJD(ctx context.Context, run *runState) (flightResult, error) {
	key := run.userID + "\x00" + run.company + "\x00" + run.jdURL
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(detached, s.jdTimeout())
		defer cancel()

		raw, err := s.Analyzer.AnalyzeJD(callCtx, collab.JDRequest{JDURL: run.jdURL, Company: run.company})
		if err != nil {
			if callCtx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, err
		}
		entry, err := s.Cache.Store(detached, run.userID, run.company, run.jdURL, raw)
		if errors.Is(err, jdcache.ErrInvalidAnalysis) {
			return nil, err
		}
		return flightResult{analysis: raw, entry: entry, stored: err == nil, storeErr: err}, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return flightResult{}, r.Err
		}
		return r.Val.(flightResult), nil
	case <-ctx.Done():
		return flightResult{}, ctx.Err()
	}
}

func (s *Service) tailor(ctx context.Context, run *runState, content cvversions.Content, analysis json.RawMessage, match matching.Result, results *Results) {
	actions := make([]string, 0, len(match.Recommendations))
	for _, rec := range match.Recommendations {
		actions = append(actions, rec.Action)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.tailorTimeout())
	defer cancel()

	resp, err := s.Tailor.TailorCV(callCtx, collab.TailorRequest{
		Company:         run.company,
		JDURL:           run.jdURL,
		CV:              content.Structured,
		CVText:          content.PlainText,
		JDAnalysis:      analysis,
		MatchedSkills:   match.MatchedSkills,
		MissingSkills:   match.MissingSkills,
		Recommendations: actions,
	})
	if err != nil {
		run.skipped(StepTailoring)
		switch {
		case errors.Is(err, collab.ErrNotConfigured):
			run.warnf("CV tailoring service is not configured")
		case callCtx.Err() != nil && ctx.Err() == nil:
			run.warnf("CV tailoring timed out after %s", s.tailorTimeout())
		default:
			run.warnf("CV tailoring failed: %v", err)
		}
		return
	}

	artifact, err := s.CVs.RecordTailored(ctx, run.userID, run.company, cvversions.Content{
		Structured: resp.Structured,
		PlainText:  resp.PlainText,
	})
	if err != nil {
		run.skipped(StepTailoring)
		run.errorf("tailored CV could not be saved: %v", err)
		return
	}
	run.completed(StepTailoring)
	results.TailoredCVPath = artifact.StructuredKey
	results.TailoredCVVersion = artifact.Version
	if len(resp.AIRecommendations) > 0 && json.Valid(resp.AIRecommendations) {
		results.AIRecommendations = resp.AIRecommendations
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) jdTimeout() time.Duration {
	if s.JDTimeout <= 0 {
		return defaultJDTimeout
	}
	return s.JDTimeout
}

func (s *Service) tailorTimeout() time.Duration {
	if s.TailorTimeout <= 0 {
		return defaultTailorTimeout
	}
	return s.TailorTimeout
}

// runState accumulates one request's provenance. It never outlives Analyze.
type runState struct {
	userID  string
	company string
	jdURL   string

	stepsCompleted []string
	stepsSkipped   []string
	warnings       []string
	errors         []string
}

func newRunState(userID, company, jdURL string) *runState {
	return &runState{
		userID:         userID,
		company:        company,
		jdURL:          jdURL,
		stepsCompleted: []string{},
		stepsSkipped:   []string{},
		warnings:       []string{},
		errors:         []string{},
	}
}

func (r *runState) completed(step string) { r.stepsCompleted = append(r.stepsCompleted, step) }
func (r *runState) skipped(step string)   { r.stepsSkipped = append(r.stepsSkipped, step) }

func (r *runState) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *runState) errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}
