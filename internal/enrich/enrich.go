// Package enrich turns a bare company name or URL into a populated resource
// draft: canonical URL, logo, scraped metadata cleaned up by the completion
// service, and a category suggestion reconciled against the tenant's
// existing categories.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"dashboard-service/internal/model"
	"dashboard-service/pkg/llm"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

var (
	// ErrNoURL indicates the completion service could not name a usable site.
	ErrNoURL = errors.New("could not determine URL")
	// ErrInvalidURL indicates the candidate URL did not parse.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrScrapeFailed indicates the target page could not be fetched.
	ErrScrapeFailed = errors.New("could not fetch page")
	// ErrCompletionFailed indicates the completion service call failed.
	ErrCompletionFailed = errors.New("completion service failed")
)

// CompletionClient is the completion-service surface the enricher needs
type CompletionClient interface {
	Complete(ctx context.Context, messages []llm.Message, maxTokens int, wantJSON bool) (string, error)
}

// LogoClient is the logo-service surface the enricher needs
type LogoClient interface {
	Lookup(ctx context.Context, domain string) (string, error)
}

// Enricher runs the resource enrichment pipeline
type Enricher struct {
	Completions CompletionClient
	Logos       LogoClient
	HTTPClient  *http.Client
	MaxTokens   int
	Logger      *zap.Logger
}

// Suggestion is a presentable resource draft suitable for direct insertion
type Suggestion struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	URL               string `json:"url"`
	ImageURL          string `json:"image_url"`
	CategoryID        *uint  `json:"category_id"`
	SuggestedCategory string `json:"suggested_category"`
}

// New creates an Enricher with a default page-fetch client
func New(completions CompletionClient, logos LogoClient, maxTokens int, log *zap.Logger) *Enricher {
	return &Enricher{
		Completions: completions,
		Logos:       logos,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		MaxTokens:   maxTokens,
		Logger:      log,
	}
}

// logFor prefers the request-scoped logger carried on the context
func (e *Enricher) logFor(ctx context.Context) *zap.Logger {
	if l := logger.FromStdContext(ctx); l != nil {
		return l
	}
	return e.Logger
}

// Suggest runs the full pipeline for a company name or URL against the
// tenant's existing categories. Logo absence is non-fatal; every other
// external failure aborts with a stage-typed error.
func (e *Enricher) Suggest(ctx context.Context, input string, categories []model.Category) (*Suggestion, error) {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return nil, ErrNoURL
	}

	if !looksLikeURL(candidate) {
		resolved, err := e.resolveCompanyURL(ctx, candidate)
		if err != nil {
			return nil, err
		}
		candidate = resolved
	}

	domain, pageURL, err := extractDomain(candidate)
	if err != nil {
		return nil, err
	}

	// Logo absence never fails the suggestion.
	imageURL := e.resolveLogo(ctx, domain)

	title, description, err := e.scrapeMetadata(ctx, pageURL, domain)
	if err != nil {
		return nil, err
	}

	cleaned, err := e.cleanupAndCategorize(ctx, title, description, categories)
	if err != nil {
		return nil, err
	}

	suggestion := &Suggestion{
		Title:             cleaned.Title,
		Description:       cleaned.Description,
		URL:               pageURL,
		ImageURL:          imageURL,
		SuggestedCategory: cleaned.SuggestedCategory,
		CategoryID:        ReconcileCategory(cleaned.SuggestedCategory, categories),
	}

	return suggestion, nil
}

// resolveCompanyURL asks the completion service for the company's canonical
// site and takes the raw text answer as the candidate URL
func (e *Enricher) resolveCompanyURL(ctx context.Context, companyName string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: "You answer with a single URL and nothing else."},
		{Role: "user", Content: fmt.Sprintf("What is the canonical website URL of the company %q?", companyName)},
	}

	answer, err := e.Completions.Complete(ctx, messages, e.MaxTokens, false)
	if err != nil {
		e.logFor(ctx).Error("URL resolution failed", zap.String("company", companyName), zap.Error(err))
		prometheus.RecordEnrichmentStage("url", false)
		return "", ErrCompletionFailed
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || !looksLikeURL(answer) {
		prometheus.RecordEnrichmentStage("url", false)
		return "", ErrNoURL
	}

	prometheus.RecordEnrichmentStage("url", true)
	return answer, nil
}

// cleaned is the structured answer of the cleanup/categorization step
type cleaned struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	SuggestedCategory string `json:"suggestedCategory"`
}

// cleanupAndCategorize sends the raw scraped metadata plus the tenant's
// category names to the completion service, biased toward reusing an
// existing category name verbatim over inventing a new one
func (e *Enricher) cleanupAndCategorize(ctx context.Context, title, description string, categories []model.Category) (*cleaned, error) {
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}

	system := "You clean up scraped website metadata for a business dashboard. " +
		"Respond with a JSON object with keys title, description and suggestedCategory. " +
		"Shorten the title to the bare business name. " +
		"Write a one-line description of what you can do on the site. " +
		"Pick suggestedCategory from the existing category names verbatim whenever one plausibly fits; " +
		"only invent a new category name if truly none fit."

	user := fmt.Sprintf("Title: %s\nDescription: %s\nExisting categories: %s",
		title, description, strings.Join(names, ", "))

	answer, err := e.Completions.Complete(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, e.MaxTokens, true)
	if err != nil {
		e.logFor(ctx).Error("Metadata cleanup failed", zap.Error(err))
		prometheus.RecordEnrichmentStage("cleanup", false)
		return nil, ErrCompletionFailed
	}

	var result cleaned
	if err := json.Unmarshal([]byte(answer), &result); err != nil {
		e.logFor(ctx).Error("Cleanup response was not valid JSON", zap.String("answer", answer), zap.Error(err))
		prometheus.RecordEnrichmentStage("cleanup", false)
		return nil, ErrCompletionFailed
	}
	prometheus.RecordEnrichmentStage("cleanup", true)

	// Fall back to the scraped values rather than returning blanks.
	if result.Title == "" {
		result.Title = title
	}
	if result.Description == "" {
		result.Description = description
	}

	return &result, nil
}

// ReconcileCategory matches the suggested category name case-insensitively
// against the tenant's existing categories. No match leaves the category nil;
// materializing a new category is a separate, explicit step so model phrasing
// variance does not proliferate near-duplicates.
func ReconcileCategory(suggested string, categories []model.Category) *uint {
	if suggested == "" {
		return nil
	}

	for i := range categories {
		if strings.EqualFold(categories[i].Name, suggested) {
			id := categories[i].ID
			return &id
		}
	}
	return nil
}

// looksLikeURL reports whether the input is plausibly a URL rather than a
// bare company name
func looksLikeURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		return err == nil && u.Host != ""
	}
	return strings.Contains(s, ".")
}
