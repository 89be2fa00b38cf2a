package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"cvtailor-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// retryDelay is a var so tests can shorten it.
var retryDelay = retryBaseDelay

// WithRetry wraps a JDAnalyzer with one retry on transient failures.
func WithRetry(base JDAnalyzer) JDAnalyzer {
	if base == nil {
		return nil
	}
	return retryingAnalyzer{base: base}
}

// WithTailorRetry wraps a Tailor with one retry on transient failures.
func WithTailorRetry(base Tailor) Tailor {
	if base == nil {
		return nil
	}
	return retryingTailor{base: base}
}

type retryingAnalyzer struct {
	base JDAnalyzer
}

func (r retryingAnalyzer) AnalyzeJD(ctx context.Context, req JDRequest) (json.RawMessage, error) {
	resp, err := r.base.AnalyzeJD(ctx, req)
	if err == nil || !shouldRetry(ctx, err) {
		return resp, err
	}
	if err := waitRetry(ctx, "jd_analysis", err); err != nil {
		return nil, err
	}
	return r.base.AnalyzeJD(ctx, req)
}

type retryingTailor struct {
	base Tailor
}

func (r retryingTailor) TailorCV(ctx context.Context, req TailorRequest) (TailorResponse, error) {
	resp, err := r.base.TailorCV(ctx, req)
	if err == nil || !shouldRetry(ctx, err) {
		return resp, err
	}
	if err := waitRetry(ctx, "tailoring", err); err != nil {
		return TailorResponse{}, err
	}
	return r.base.TailorCV(ctx, req)
}

func waitRetry(ctx context.Context, step string, cause error) error {
	telemetry.Warn("collab.retry", map[string]any{
		"step":    step,
		"attempt": 1,
		"error":   cause.Error(),
	})
	select {
	case <-time.After(retryDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shouldRetry(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof")
}
