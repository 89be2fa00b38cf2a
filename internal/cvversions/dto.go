package cvversions

import (
	"encoding/json"
	"time"
)

// ArtifactResponse is the wire form of an Artifact.
type ArtifactResponse struct {
	ID         string          `json:"id"`
	Company    *string         `json:"company"`
	CVType     string          `json:"cv_type"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	JSONPath   string          `json:"json_path"`
	TxtPath    string          `json:"txt_path"`
	Structured json.RawMessage `json:"structured,omitempty"`
	PlainText  string          `json:"plain_text,omitempty"`
}

type saveOriginalRequest struct {
	Structured json.RawMessage `json:"structured"`
	PlainText  string          `json:"plain_text"`
}

func toResponse(a Artifact) ArtifactResponse {
	resp := ArtifactResponse{
		ID:        a.ID,
		CVType:    string(a.Kind),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		JSONPath:  a.StructuredKey,
		TxtPath:   a.PlainTextKey,
	}
	if a.Company != "" {
		company := a.Company
		resp.Company = &company
	}
	return resp
}
