// Package normalize holds the canonical forms used for every persisted key
// (JD cache, CV versions, applied flags). Lookups and writes must go through
// the same functions or entries silently stop matching.
package normalize

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// ErrInvalidURL is returned for JD URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid jd url")

// Company trims, collapses inner whitespace, and lower-cases a company name.
func Company(raw string) string {
	fields := strings.FieldsFunc(raw, unicode.IsSpace)
	return strings.ToLower(strings.Join(fields, " "))
}

// JobID trims and lower-cases an external job identifier.
func JobID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// JDURL returns the canonical form of a job description URL: lower-cased
// scheme and host, default port dropped, fragment and tracking params removed,
// query keys sorted, trailing slashes stripped.
func JDURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", ErrInvalidURL
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrInvalidURL
	}
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     strings.TrimRight(u.EscapedPath(), "/"),
		RawQuery: q.Encode(),
	}
	// Path already escaped; avoid double-escaping through url.URL.String.
	s := out.Scheme + "://" + out.Host + out.Path
	if out.RawQuery != "" {
		s += "?" + out.RawQuery
	}
	return s, nil
}

// JDURLOrRaw is JDURL with a lower-cased, trimmed fallback for values that do
// not parse, so storage keys stay deterministic.
func JDURLOrRaw(raw string) string {
	if canonical, err := JDURL(raw); err == nil {
		return canonical
	}
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
