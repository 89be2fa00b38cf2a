package cvversions

import (
	"encoding/json"
	"time"
)

// Kind distinguishes the single global CV from per-company tailored variants.
type Kind string

const (
	KindOriginal Kind = "original"
	KindTailored Kind = "tailored"
)

// Artifact is one immutable CV version. Company is empty for the original.
type Artifact struct {
	ID            string
	UserID        string
	Company       string
	Kind          Kind
	Version       int
	StructuredKey string
	PlainTextKey  string
	CreatedAt     time.Time
}

// Content holds both representations of a CV.
type Content struct {
	Structured json.RawMessage
	PlainText  string
}
