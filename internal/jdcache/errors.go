package jdcache

import "errors"

var (
	// ErrInvalidKey is returned when user, company, or JD URL is empty after normalization.
	ErrInvalidKey = errors.New("invalid jd cache key")
	// ErrInvalidAnalysis is returned when storing something other than a JSON object.
	ErrInvalidAnalysis = errors.New("jd analysis must be a JSON object")
)
