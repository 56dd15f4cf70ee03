package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dashboard-service/internal/model"
	"dashboard-service/pkg/llm"
	"dashboard-service/pkg/logger"
)

// fakeCompletions returns canned answers keyed by whether JSON was requested
type fakeCompletions struct {
	textAnswer string
	jsonAnswer string
	err        error
	calls      int
}

func (f *fakeCompletions) Complete(_ context.Context, _ []llm.Message, _ int, wantJSON bool) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if wantJSON {
		return f.jsonAnswer, nil
	}
	return f.textAnswer, nil
}

// fakeLogos resolves only the domains present in the map
type fakeLogos struct {
	known   map[string]string
	queried []string
}

func (f *fakeLogos) Lookup(_ context.Context, domain string) (string, error) {
	f.queried = append(f.queried, domain)
	if url, ok := f.known[domain]; ok {
		return url, nil
	}
	return "", errors.New("logo not found")
}

func newTestEnricher(completions CompletionClient, logos LogoClient) *Enricher {
	e := New(completions, logos, 500, zap.NewNop())
	return e
}

func TestLooksLikeURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"http://example.com/path", true},
		{"example.com", true},
		{"sub.example.co.uk", true},
		{"Acme Corporation", false},
		{"Acme", false},
		{"https://", false},
		{"two words.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeURL(tt.input))
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name       string
		candidate  string
		wantDomain string
		wantPage   string
		wantErr    error
	}{
		{
			name:       "full https URL",
			candidate:  "https://example.com/about",
			wantDomain: "example.com",
			wantPage:   "https://example.com/about",
		},
		{
			name:       "scheme added when missing",
			candidate:  "example.com",
			wantDomain: "example.com",
			wantPage:   "https://example.com",
		},
		{
			name:       "www prefix stripped from domain only",
			candidate:  "https://www.example.com",
			wantDomain: "example.com",
			wantPage:   "https://www.example.com",
		},
		{
			name:      "no dot is not a domain",
			candidate: "localhost",
			wantErr:   ErrInvalidURL,
		},
		{
			name:      "empty host",
			candidate: "https://",
			wantErr:   ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, pageURL, err := extractDomain(tt.candidate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDomain, domain)
			assert.Equal(t, tt.wantPage, pageURL)
		})
	}
}

func TestRootDomain(t *testing.T) {
	assert.Equal(t, "example.com", rootDomain("example.com"))
	assert.Equal(t, "example.com", rootDomain("app.example.com"))
	assert.Equal(t, "example.com", rootDomain("deep.app.example.com"))
	assert.Equal(t, "io", rootDomain("io"))
}

func TestReconcileCategory(t *testing.T) {
	categories := []model.Category{
		{ID: 1, Name: "Marketing"},
		{ID: 2, Name: "Engineering"},
	}

	t.Run("case-insensitive match reuses the existing category", func(t *testing.T) {
		id := ReconcileCategory("marketing", categories)
		require.NotNil(t, id)
		assert.Equal(t, uint(1), *id)
	})

	t.Run("exact match", func(t *testing.T) {
		id := ReconcileCategory("Engineering", categories)
		require.NotNil(t, id)
		assert.Equal(t, uint(2), *id)
	})

	t.Run("unknown name is never auto-created", func(t *testing.T) {
		assert.Nil(t, ReconcileCategory("Finance", categories))
	})

	t.Run("empty suggestion", func(t *testing.T) {
		assert.Nil(t, ReconcileCategory("", categories))
	})
}

func TestResolveLogo_FallbackChain(t *testing.T) {
	t.Run("bare domain hit", func(t *testing.T) {
		logos := &fakeLogos{known: map[string]string{"app.example.com": "https://logos/app.example.com"}}
		e := newTestEnricher(&fakeCompletions{}, logos)

		got := e.resolveLogo(context.Background(), "app.example.com")
		assert.Equal(t, "https://logos/app.example.com", got)
		assert.Equal(t, []string{"app.example.com"}, logos.queried)
	})

	t.Run("falls through to www variant", func(t *testing.T) {
		logos := &fakeLogos{known: map[string]string{"www.example.com": "https://logos/www.example.com"}}
		e := newTestEnricher(&fakeCompletions{}, logos)

		got := e.resolveLogo(context.Background(), "example.com")
		assert.Equal(t, "https://logos/www.example.com", got)
		assert.Equal(t, []string{"example.com", "www.example.com"}, logos.queried)
	})

	t.Run("falls through to registrable root", func(t *testing.T) {
		logos := &fakeLogos{known: map[string]string{"example.com": "https://logos/example.com"}}
		e := newTestEnricher(&fakeCompletions{}, logos)

		got := e.resolveLogo(context.Background(), "app.example.com")
		assert.Equal(t, "https://logos/example.com", got)
		assert.Equal(t, []string{"app.example.com", "www.app.example.com", "example.com"}, logos.queried)
	})

	t.Run("whole chain failing returns empty, not error", func(t *testing.T) {
		logos := &fakeLogos{}
		e := newTestEnricher(&fakeCompletions{}, logos)

		assert.Empty(t, e.resolveLogo(context.Background(), "app.example.com"))
		assert.Len(t, logos.queried, 3)
	})

	t.Run("root variant skipped when identical to bare domain", func(t *testing.T) {
		logos := &fakeLogos{}
		e := newTestEnricher(&fakeCompletions{}, logos)

		e.resolveLogo(context.Background(), "example.com")
		assert.Equal(t, []string{"example.com", "www.example.com"}, logos.queried)
	})
}

func TestScrapeMetadata_Priority(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantT    string
		wantDesc string
	}{
		{
			name: "open graph beats everything",
			body: `<html><head>
				<title>Page Title</title>
				<meta property="og:title" content="OG Title">
				<meta property="og:description" content="OG Desc">
				<meta name="twitter:title" content="TW Title">
				<meta name="description" content="Meta Desc">
			</head></html>`,
			wantT:    "OG Title",
			wantDesc: "OG Desc",
		},
		{
			name: "twitter card beats title tag",
			body: `<html><head>
				<title>Page Title</title>
				<meta name="twitter:title" content="TW Title">
				<meta name="twitter:description" content="TW Desc">
			</head></html>`,
			wantT:    "TW Title",
			wantDesc: "TW Desc",
		},
		{
			name: "twitter tags via property attribute",
			body: `<html><head>
				<meta property="twitter:title" content="TW Title">
			</head></html>`,
			wantT: "TW Title",
		},
		{
			name: "title and meta description fallback",
			body: `<html><head>
				<title>  Page Title  </title>
				<meta name="description" content="Meta Desc">
			</head></html>`,
			wantT:    "Page Title",
			wantDesc: "Meta Desc",
		},
		{
			name:  "bare page falls back to the domain",
			body:  `<html><head></head><body>hi</body></html>`,
			wantT: "example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			e := newTestEnricher(&fakeCompletions{}, &fakeLogos{})
			title, description, err := e.scrapeMetadata(context.Background(), srv.URL, "example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.wantT, title)
			assert.Equal(t, tt.wantDesc, description)
		})
	}
}

func TestScrapeMetadata_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := newTestEnricher(&fakeCompletions{}, &fakeLogos{})
	_, _, err := e.scrapeMetadata(context.Background(), srv.URL, "example.com")
	assert.ErrorIs(t, err, ErrScrapeFailed)
}

func TestSuggest(t *testing.T) {
	categories := []model.Category{
		{ID: 3, Name: "Productivity"},
	}

	newPageServer := func(t *testing.T) *httptest.Server {
		t.Helper()
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><head>
				<meta property="og:title" content="Acme | Home of Acme">
				<meta property="og:description" content="Acme raw description">
			</head></html>`)
		}))
	}

	t.Run("URL input with logo and category match", func(t *testing.T) {
		srv := newPageServer(t)
		defer srv.Close()

		completions := &fakeCompletions{
			jsonAnswer: `{"title":"Acme","description":"Plan your day with Acme.","suggestedCategory":"productivity"}`,
		}
		logos := &fakeLogos{known: map[string]string{"127.0.0.1": "https://logos/acme"}}
		e := newTestEnricher(completions, logos)

		// httptest serves on 127.0.0.1, so the fake is seeded with the bare host.
		s, err := e.Suggest(context.Background(), srv.URL, categories)
		require.NoError(t, err)

		assert.Equal(t, "Acme", s.Title)
		assert.Equal(t, "Plan your day with Acme.", s.Description)
		assert.Equal(t, srv.URL, s.URL)
		assert.Equal(t, "https://logos/acme", s.ImageURL)
		assert.Equal(t, "productivity", s.SuggestedCategory)
		require.NotNil(t, s.CategoryID)
		assert.Equal(t, uint(3), *s.CategoryID)
		// URL input skips the URL-resolution completion entirely.
		assert.Equal(t, 1, completions.calls)
	})

	t.Run("missing logo is non-fatal", func(t *testing.T) {
		srv := newPageServer(t)
		defer srv.Close()

		completions := &fakeCompletions{
			jsonAnswer: `{"title":"Acme","description":"Desc","suggestedCategory":"Finance"}`,
		}
		e := newTestEnricher(completions, &fakeLogos{})

		s, err := e.Suggest(context.Background(), srv.URL, categories)
		require.NoError(t, err)
		assert.Empty(t, s.ImageURL)
		assert.Nil(t, s.CategoryID)
		assert.Equal(t, "Finance", s.SuggestedCategory)
	})

	t.Run("blank cleanup fields fall back to scraped values", func(t *testing.T) {
		srv := newPageServer(t)
		defer srv.Close()

		completions := &fakeCompletions{jsonAnswer: `{"title":"","description":"","suggestedCategory":""}`}
		e := newTestEnricher(completions, &fakeLogos{})

		s, err := e.Suggest(context.Background(), srv.URL, categories)
		require.NoError(t, err)
		assert.Equal(t, "Acme | Home of Acme", s.Title)
		assert.Equal(t, "Acme raw description", s.Description)
	})

	t.Run("company name resolved through the completion service", func(t *testing.T) {
		srv := newPageServer(t)
		defer srv.Close()

		completions := &fakeCompletions{
			textAnswer: srv.URL,
			jsonAnswer: `{"title":"Acme","description":"Desc","suggestedCategory":""}`,
		}
		e := newTestEnricher(completions, &fakeLogos{})

		s, err := e.Suggest(context.Background(), "Acme Corporation", categories)
		require.NoError(t, err)
		assert.Equal(t, srv.URL, s.URL)
		assert.Equal(t, 2, completions.calls)
	})

	t.Run("unresolvable company name", func(t *testing.T) {
		completions := &fakeCompletions{textAnswer: "I could not find that company"}
		e := newTestEnricher(completions, &fakeLogos{})

		_, err := e.Suggest(context.Background(), "Nonexistent Co", nil)
		assert.ErrorIs(t, err, ErrNoURL)
	})

	t.Run("completion outage", func(t *testing.T) {
		completions := &fakeCompletions{err: errors.New("upstream down")}
		e := newTestEnricher(completions, &fakeLogos{})

		_, err := e.Suggest(context.Background(), "Acme Corporation", nil)
		assert.ErrorIs(t, err, ErrCompletionFailed)
	})

	t.Run("empty input", func(t *testing.T) {
		e := newTestEnricher(&fakeCompletions{}, &fakeLogos{})
		_, err := e.Suggest(context.Background(), "   ", nil)
		assert.ErrorIs(t, err, ErrNoURL)
	})
}

func TestSuggest_UsesContextLogger(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))

	completions := &fakeCompletions{err: errors.New("upstream down")}
	e := newTestEnricher(completions, &fakeLogos{})

	_, err := e.Suggest(ctx, "Acme Corporation", nil)
	require.ErrorIs(t, err, ErrCompletionFailed)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "URL resolution failed", logs.All()[0].Message)
}
