package enrich

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"dashboard-service/prometheus"
)

// pageMeta holds the metadata candidates collected from a page
type pageMeta struct {
	ogTitle       string
	ogDescription string
	twTitle       string
	twDescription string
	title         string
	description   string
}

// scrapeMetadata fetches the page and extracts a title and description by
// fixed priority: Open Graph, then Twitter card, then <title>/<meta
// name="description">, then the domain name with an empty description.
func (e *Enricher) scrapeMetadata(ctx context.Context, pageURL, domain string) (title, description string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", "", ErrInvalidURL
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.logFor(ctx).Error("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
		prometheus.RecordEnrichmentStage("scrape", false)
		return "", "", ErrScrapeFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		e.logFor(ctx).Error("Page fetch returned error status",
			zap.String("url", pageURL),
			zap.Int("status", resp.StatusCode))
		prometheus.RecordEnrichmentStage("scrape", false)
		return "", "", ErrScrapeFailed
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		prometheus.RecordEnrichmentStage("scrape", false)
		return "", "", ErrScrapeFailed
	}
	prometheus.RecordEnrichmentStage("scrape", true)

	var meta pageMeta
	collectMeta(doc, &meta)

	title = firstNonEmpty(meta.ogTitle, meta.twTitle, meta.title, domain)
	description = firstNonEmpty(meta.ogDescription, meta.twDescription, meta.description)
	return title, description, nil
}

// collectMeta walks the parse tree gathering title and meta tag candidates
func collectMeta(n *html.Node, meta *pageMeta) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if n.FirstChild != nil && meta.title == "" {
				meta.title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			var name, property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			content = strings.TrimSpace(content)
			switch {
			case property == "og:title":
				meta.ogTitle = content
			case property == "og:description":
				meta.ogDescription = content
			case name == "twitter:title" || property == "twitter:title":
				meta.twTitle = content
			case name == "twitter:description" || property == "twitter:description":
				meta.twDescription = content
			case name == "description":
				meta.description = content
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, meta)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
