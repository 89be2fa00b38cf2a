package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Hosted job boards put the employer in the first path segment rather than the host.
var pathTenantHosts = map[string]bool{
	"greenhouse.io":       true,
	"lever.co":            true,
	"ashbyhq.com":         true,
	"workable.com":        true,
	"smartrecruiters.com": true,
	"recruitee.com":       false,
	"bamboohr.com":        false,
	"myworkdayjobs.com":   false,
}

// CompanyFromURL derives a normalized company name from a JD URL.
//
// Rule: for job boards that host many employers the tenant (first path
// segment, or leftmost subdomain for subdomain-tenant boards) is the company;
// otherwise the registrable domain label (eTLD+1 without the suffix) is used.
// Returns "" when nothing can be derived.
func CompanyFromURL(raw string) string {
	canonical, err := JDURL(raw)
	if err != nil {
		return ""
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}

	if pathTenant, known := pathTenantHosts[registrable]; known {
		if pathTenant {
			if seg := firstPathSegment(u.Path); seg != "" {
				return Company(strings.ReplaceAll(seg, "-", " "))
			}
			return ""
		}
		sub := strings.TrimSuffix(host, "."+registrable)
		if sub == host || sub == "" {
			return ""
		}
		labels := strings.Split(sub, ".")
		return Company(strings.ReplaceAll(labels[0], "-", " "))
	}

	suffix, _ := publicsuffix.PublicSuffix(host)
	label := strings.TrimSuffix(registrable, "."+suffix)
	return Company(strings.ReplaceAll(label, "-", " "))
}

func firstPathSegment(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}
