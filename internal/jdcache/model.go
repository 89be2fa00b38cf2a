package jdcache

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"cvtailor-backend/internal/normalize"
)

// Key identifies one cached JD analysis. Always build it with NewKey.
type Key struct {
	UserID  string
	Company string
	JDURL   string
}

// NewKey applies the canonical company and JD URL forms.
func NewKey(userID, company, jdURL string) (Key, error) {
	k := Key{
		UserID:  userID,
		Company: normalize.Company(company),
		JDURL:   normalize.JDURLOrRaw(jdURL),
	}
	if k.UserID == "" || k.Company == "" || k.JDURL == "" {
		return Key{}, ErrInvalidKey
	}
	return k, nil
}

// Entry is a stored JD analysis plus its usage metadata.
type Entry struct {
	Key
	Analysis   json.RawMessage
	CachedAt   time.Time
	LastUsedAt time.Time
	UseCount   int
}

// Stats is the read-only view shown to clients before and after analysis.
type Stats struct {
	HasCache   bool       `json:"has_cache"`
	UseCount   int        `json:"use_count"`
	CacheValid bool       `json:"cache_valid"`
	AgeHours   float64    `json:"age_hours"`
	TTLHours   float64    `json:"ttl_hours"`
	CachedAt   *time.Time `json:"cached_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// StatsFor describes e as of now. A zero Entry yields HasCache=false.
func StatsFor(e Entry, found bool, ttl time.Duration, now time.Time) Stats {
	st := Stats{TTLHours: roundHours(ttl.Hours())}
	if !found {
		return st
	}
	cachedAt := e.CachedAt
	lastUsedAt := e.LastUsedAt
	expiresAt := e.CachedAt.Add(ttl)
	st.HasCache = true
	st.UseCount = e.UseCount
	st.CacheValid = !expired(e.CachedAt, ttl, now)
	st.AgeHours = roundHours(now.Sub(e.CachedAt).Hours())
	st.CachedAt = &cachedAt
	st.LastUsedAt = &lastUsedAt
	st.ExpiresAt = &expiresAt
	return st
}

// expired reports now - cachedAt > ttl.
func expired(cachedAt time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(cachedAt) > ttl
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
