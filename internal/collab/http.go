package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// HTTPClient posts JSON to a collaborator endpoint.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient constructs an HTTPClient. timeout bounds a single attempt;
// callers still pass a context deadline for the whole call.
func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNotConfigured
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("collab: request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("collab: http status %d", resp.StatusCode)
	}
	return raw, nil
}

// HTTPJDAnalyzer is a JDAnalyzer backed by an HTTP endpoint.
type HTTPJDAnalyzer struct {
	*HTTPClient
}

func (a HTTPJDAnalyzer) AnalyzeJD(ctx context.Context, req JDRequest) (json.RawMessage, error) {
	raw, err := a.post(ctx, req)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, errors.New("collab: jd analysis is not a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

// HTTPTailor is a Tailor backed by an HTTP endpoint.
type HTTPTailor struct {
	*HTTPClient
}

func (t HTTPTailor) TailorCV(ctx context.Context, req TailorRequest) (TailorResponse, error) {
	raw, err := t.post(ctx, req)
	if err != nil {
		return TailorResponse{}, err
	}
	var out TailorResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return TailorResponse{}, fmt.Errorf("collab: tailor response parse: %w", err)
	}
	if len(bytes.TrimSpace(out.Structured)) == 0 && strings.TrimSpace(out.PlainText) == "" {
		return TailorResponse{}, errors.New("collab: tailor response has no cv")
	}
	return out, nil
}

var (
	_ JDAnalyzer = HTTPJDAnalyzer{}
	_ Tailor     = HTTPTailor{}
)
