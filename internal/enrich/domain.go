package enrich

import (
	"net/url"
	"strings"
)

// extractDomain parses the candidate URL and returns the bare domain
// (hostname without a leading www.) plus the normalized page URL
func extractDomain(candidate string) (domain, pageURL string, err error) {
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}

	u, parseErr := url.Parse(candidate)
	if parseErr != nil || u.Hostname() == "" {
		return "", "", ErrInvalidURL
	}

	domain = strings.TrimPrefix(u.Hostname(), "www.")
	if domain == "" || !strings.Contains(domain, ".") {
		return "", "", ErrInvalidURL
	}

	return domain, u.String(), nil
}

// rootDomain returns the registrable root of a hostname, taken as its last
// two labels: foo.bar.example.com -> example.com
func rootDomain(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) <= 2 {
		return domain
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
