package normalize

import "testing"

func TestCompany(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme ", want: "acme"},
		{in: "  ACME   Corp\t", want: "acme corp"},
		{in: "acme", want: "acme"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := Company(tt.in); got != tt.want {
			t.Fatalf("Company(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJDURLCanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing slash", in: "https://x.com/job/", want: "https://x.com/job"},
		{name: "no slash", in: "https://x.com/job", want: "https://x.com/job"},
		{name: "host case", in: " HTTPS://X.COM/job ", want: "https://x.com/job"},
		{name: "default port", in: "https://x.com:443/job", want: "https://x.com/job"},
		{name: "custom port", in: "http://x.com:8080/job/", want: "http://x.com:8080/job"},
		{name: "fragment and utm", in: "https://x.com/job?utm_source=li&id=2#apply", want: "https://x.com/job?id=2"},
		{name: "query order", in: "https://x.com/job?b=2&a=1", want: "https://x.com/job?a=1&b=2"},
		{name: "root", in: "https://x.com/", want: "https://x.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JDURL(tt.in)
			if err != nil {
				t.Fatalf("JDURL(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("JDURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJDURLRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "ftp://x.com/job", "https:///job", "/relative/path"} {
		if _, err := JDURL(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestJDURLOrRawIsStable(t *testing.T) {
	if got := JDURLOrRaw(" NOT A URL/ "); got != "not a url" {
		t.Fatalf("unexpected fallback: %q", got)
	}
	if JDURLOrRaw("https://x.com/job/") != JDURLOrRaw("https://X.com/job") {
		t.Fatalf("expected equal canonical forms")
	}
}

func TestCompanyFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://careers.acme.com/jobs/123", want: "acme"},
		{in: "https://jobs.acme.co.uk/role", want: "acme"},
		{in: "https://boards.greenhouse.io/big-corp/jobs/42", want: "big corp"},
		{in: "https://jobs.lever.co/Stripe/abc", want: "stripe"},
		{in: "https://globex.wd5.myworkdayjobs.com/en-US/careers/job/1", want: "globex"},
		{in: "not a url", want: ""},
	}
	for _, tt := range tests {
		if got := CompanyFromURL(tt.in); got != tt.want {
			t.Fatalf("CompanyFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
