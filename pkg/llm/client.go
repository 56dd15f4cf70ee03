package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client represents a client for an OpenAI-compatible chat completion service
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Message is a single chat message sent to the completion service
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest represents the request body for the chat completions endpoint
type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// completionResponse represents the response from the chat completions endpoint
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// errorResponse represents an error response from the completion service
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a new completion client instance
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Complete sends a chat completion request and returns the raw text of the
// first choice. When wantJSON is set the service is instructed to respond
// with a JSON object.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int, wantJSON bool) (string, error) {
	reqBody := completionRequest{
		Model:     c.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if wantJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", c.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
			return "", fmt.Errorf("completion request failed: %d %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("completion request failed: %s", errResp.Error.Message)
	}

	var completionResp completionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return "", err
	}

	if len(completionResp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return completionResp.Choices[0].Message.Content, nil
}
