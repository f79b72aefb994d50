// Package suggest fetches text continuations from an external completion
// service. Providers never fail: any problem yields an empty suggestion.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Provider interface {
	Suggest(ctx context.Context, text string) string
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) string

func (f ProviderFunc) Suggest(ctx context.Context, text string) string { return f(ctx, text) }

// None never suggests anything.
var None Provider = ProviderFunc(func(context.Context, string) string { return "" })

// maxPromptRunes bounds how much of the block is sent upstream.
const maxPromptRunes = 2000

type HTTPProvider struct {
	url    string
	apiKey string
	client *http.Client
	logger zerolog.Logger
}

func NewHTTPProvider(url, apiKey string, timeout time.Duration, logger zerolog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "suggest").Logger(),
	}
}

type suggestRequest struct {
	Prompt string `json:"prompt"`
}

type suggestResponse struct {
	Text string `json:"text"`
}

func (p *HTTPProvider) Suggest(ctx context.Context, text string) string {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return ""
	}
	if runes := []rune(prompt); len(runes) > maxPromptRunes {
		prompt = string(runes[len(runes)-maxPromptRunes:])
	}
	out, err := p.fetch(ctx, prompt)
	if err != nil {
		p.logger.Warn().Err(err).Msg("suggestion failed")
		return ""
	}
	return out
}

func (p *HTTPProvider) fetch(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(suggestRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post suggestion: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("suggestion status %d", resp.StatusCode)
	}

	var decoded suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode suggestion: %w", err)
	}
	return strings.TrimRight(decoded.Text, " \n"), nil
}
