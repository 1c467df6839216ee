package gemini

import (
	"context"

	"github.com/lutradev/lutra/internal/usecase/fix"
	"github.com/lutradev/lutra/internal/usecase/review"
)

const (
	reviewSystemPrompt = "You are a code review assistant. Respond only with the requested JSON object."
	fixSystemPrompt    = "You are a code fixing assistant. Respond only with the complete fixed file content."
)

// Provider adapts HTTPClient to the review and fix provider ports.
type Provider struct {
	client      *HTTPClient
	maxTokens   int
	temperature float64
}

// NewProvider wraps client. maxTokens bounds each completion; zero
// leaves it to the API default.
func NewProvider(client *HTTPClient, maxTokens int, temperature float64) *Provider {
	return &Provider{client: client, maxTokens: maxTokens, temperature: temperature}
}

// Review requests review comments for one file and returns the raw
// model text.
func (p *Provider) Review(ctx context.Context, req review.ProviderRequest) (string, error) {
	resp, err := p.client.Call(ctx, req.Prompt, CallOptions{
		System:      reviewSystemPrompt,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Fix requests regenerated file content and returns the raw model
// text.
func (p *Provider) Fix(ctx context.Context, req fix.Request) (string, error) {
	resp, err := p.client.Call(ctx, req.Prompt, CallOptions{
		System:      fixSystemPrompt,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
