// Package ner provides an identity.NameRecognizer that calls a named-entity
// recognition sidecar over HTTP. If the sidecar is unreachable, it logs a
// warning and reports no name so extraction degrades to a miss.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wudi/redactkit/identity"
	"github.com/wudi/redactkit/observability"
)

// Client calls the sidecar's /classify endpoint.
type Client struct {
	url    string
	http   *http.Client
	logger observability.Logger
}

var _ identity.NameRecognizer = (*Client)(nil)

// New creates a Client pointing at the given base URL
// (e.g. "http://redact-ner:8001"). A nil logger discards warnings.
func New(baseURL string, logger observability.Logger) *Client {
	return &Client{
		url: strings.TrimRight(baseURL, "/") + "/classify",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: observability.OrNop(logger),
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []nerSpan `json:"spans"`
}

type nerSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// RecognizeName returns the first person entity found in text, or "" when
// there is none or the sidecar cannot be reached.
func (c *Client) RecognizeName(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("ner: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("ner sidecar unreachable, skipping name recognition", observability.Error("err", err))
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ner sidecar unexpected status", observability.Int("code", resp.StatusCode))
		return "", nil
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ner: decode: %w", err)
	}
	for _, s := range result.Spans {
		if !isPerson(s.Label) {
			continue
		}
		if name := strings.TrimSpace(spanText(text, s)); name != "" {
			return name, nil
		}
	}
	return "", nil
}

func isPerson(label string) bool {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return true
	}
	return false
}

// spanText prefers the text echoed by the sidecar and falls back to the byte
// offsets.
func spanText(text string, s nerSpan) string {
	if s.Text != "" {
		return s.Text
	}
	if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
		return ""
	}
	return text[s.Start:s.End]
}
