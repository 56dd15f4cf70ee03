package logoapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrLogoNotFound indicates the logo service has no logo for the domain
var ErrLogoNotFound = errors.New("logo not found")

// Client represents a client for a domain-keyed logo lookup service
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new logo client instance
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup checks whether the service has a logo for the given bare domain and
// returns the logo URL. A non-2xx response maps to ErrLogoNotFound.
func (c *Client) Lookup(ctx context.Context, domain string) (string, error) {
	logoURL := fmt.Sprintf("%s/%s", c.BaseURL, domain)

	req, err := http.NewRequestWithContext(ctx, "GET", logoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrLogoNotFound
	}

	return logoURL, nil
}
