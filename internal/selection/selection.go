// Package selection decides which CV version an analysis runs against.
package selection

import (
	"context"
	"errors"
	"fmt"

	"cvtailor-backend/internal/cvversions"
)

var (
	// ErrCVNotFound means a fresh analysis was requested before any CV upload.
	ErrCVNotFound = errors.New("no original cv uploaded")
	// ErrTailoredCVNotFound means a rerun could not find a CV to run against.
	ErrTailoredCVNotFound = errors.New("no tailored cv for company")
)

// Source records why a CV was chosen.
type Source int

const (
	SourceFresh Source = iota
	SourceRerunTailored
	SourceRerunFallback
)

func (s Source) String() string {
	switch s {
	case SourceFresh:
		return "original_cv_fresh_analysis"
	case SourceRerunTailored:
		return "tailored_cv_rerun"
	case SourceRerunFallback:
		return "original_cv_rerun_fallback"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// MarshalText emits the wire name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a wire name produced by MarshalText.
func (s *Source) UnmarshalText(b []byte) error {
	for _, candidate := range []Source{SourceFresh, SourceRerunTailored, SourceRerunFallback} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown cv source %q", b)
}

// Reader is the read side of the CV version store.
type Reader interface {
	GetOriginal(ctx context.Context, userID string) (cvversions.Artifact, error)
	GetLatestTailored(ctx context.Context, userID, company string) (cvversions.Artifact, error)
}

// Selection is the chosen artifact and the reason for it.
type Selection struct {
	Artifact cvversions.Artifact
	Source   Source
}

// Policy holds the one configurable branch of the decision table.
type Policy struct {
	// RequireTailoredOnRerun turns the rerun fallback into ErrTailoredCVNotFound.
	RequireTailoredOnRerun bool
}

// Select applies the decision table:
//
//	isRerun=false                 -> original   (original_cv_fresh_analysis)
//	isRerun=true, tailored exists -> latest tailored (tailored_cv_rerun)
//	isRerun=true, no tailored     -> original   (original_cv_rerun_fallback)
//
// The result depends only on what the store holds.
func (p Policy) Select(ctx context.Context, cvs Reader, userID, company string, isRerun bool) (Selection, error) {
	if !isRerun {
		original, err := cvs.GetOriginal(ctx, userID)
		if err != nil {
			if errors.Is(err, cvversions.ErrNotFound) {
				return Selection{}, ErrCVNotFound
			}
			return Selection{}, err
		}
		return Selection{Artifact: original, Source: SourceFresh}, nil
	}

	tailored, err := cvs.GetLatestTailored(ctx, userID, company)
	switch {
	case err == nil:
		return Selection{Artifact: tailored, Source: SourceRerunTailored}, nil
	case !errors.Is(err, cvversions.ErrNotFound):
		return Selection{}, err
	case p.RequireTailoredOnRerun:
		return Selection{}, ErrTailoredCVNotFound
	}

	original, err := cvs.GetOriginal(ctx, userID)
	if err != nil {
		if errors.Is(err, cvversions.ErrNotFound) {
			return Selection{}, ErrTailoredCVNotFound
		}
		return Selection{}, err
	}
	return Selection{Artifact: original, Source: SourceRerunFallback}, nil
}
