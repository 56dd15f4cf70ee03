package enrich

import (
	"context"

	"go.uber.org/zap"

	"dashboard-service/prometheus"
)

// resolveLogo tries the logo service with the bare domain, then the
// www-prefixed domain, then the registrable root domain. First success wins.
// When the whole chain fails the suggestion proceeds without an image.
func (e *Enricher) resolveLogo(ctx context.Context, domain string) string {
	variants := []string{domain, "www." + domain}
	if root := rootDomain(domain); root != domain {
		variants = append(variants, root)
	}

	for _, variant := range variants {
		logoURL, err := e.Logos.Lookup(ctx, variant)
		if err == nil {
			prometheus.RecordEnrichmentStage("logo", true)
			return logoURL
		}
	}

	e.logFor(ctx).Debug("No logo found for any domain variant", zap.String("domain", domain))
	prometheus.RecordEnrichmentStage("logo", false)
	return ""
}
