// Package gemini is the Google Gemini provider adapter.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	llmhttp "github.com/lutradev/lutra/internal/adapter/llm/http"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second
)

// HTTPClient talks to the Gemini generateContent API.
type HTTPClient struct {
	apiKey    string
	model     string
	baseURL   string
	retryConf llmhttp.RetryConfig
	client    *http.Client
	logger    llmhttp.Logger
}

// NewHTTPClient creates a client for the given credentials and model.
func NewHTTPClient(apiKey, model string) *HTTPClient {
	return &HTTPClient{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		retryConf: llmhttp.DefaultRetryConfig(),
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL overrides the API endpoint (for testing).
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *HTTPClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetRetryConfig overrides the retry behavior.
func (c *HTTPClient) SetRetryConfig(conf llmhttp.RetryConfig) {
	c.retryConf = conf
}

// SetLogger sets the call logger.
func (c *HTTPClient) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// CallOptions tunes one API call.
type CallOptions struct {
	System      string
	Temperature float64
	MaxTokens   int
}

// APIResponse is the parsed completion.
type APIResponse struct {
	Text         string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// defaultSafetySettings block only high-severity content so normal
// source code review is never filtered.
var defaultSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
}

// Call sends prompt to the generateContent API with retry on transient
// failures and returns the first candidate.
func (c *HTTPClient) Call(ctx context.Context, prompt string, options CallOptions) (*APIResponse, error) {
	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       c.model,
			Timestamp:   start,
			PromptChars: len(prompt),
			APIKey:      c.apiKey,
		})
	}

	reqBody := GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
		SafetySettings: defaultSafetySettings,
	}
	if options.System != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{{Text: options.System}}}
	}
	if options.Temperature > 0 || options.MaxTokens > 0 {
		reqBody.GenerationConfig = &GenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
			CandidateCount:  1,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// The key travels as a query parameter; it must never appear in
	// errors or logs.
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var response *APIResponse
	operation := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return llmhttp.NewTimeoutError(providerName, sanitizeTransportError(err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleErrorResponse(resp.StatusCode, body)
		}

		var genResp GenerateContentResponse
		if err := json.Unmarshal(body, &genResp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if len(genResp.Candidates) == 0 {
			return llmhttp.NewInvalidRequestError(providerName, "no candidates in response")
		}

		candidate := genResp.Candidates[0]
		if candidate.FinishReason == "SAFETY" {
			return llmhttp.NewContentFilteredError(providerName, "response blocked by safety filters")
		}

		var parts []string
		for _, part := range candidate.Content.Parts {
			parts = append(parts, part.Text)
		}

		response = &APIResponse{
			Text:         strings.Join(parts, ""),
			TokensIn:     genResp.UsageMetadata.PromptTokenCount,
			TokensOut:    genResp.UsageMetadata.CandidatesTokenCount,
			FinishReason: candidate.FinishReason,
		}
		return nil
	}

	if err := llmhttp.RetryWithBackoff(ctx, operation, c.retryConf); err != nil {
		if c.logger != nil {
			c.logger.LogError(ctx, llmhttp.ErrorLog{
				Provider:  providerName,
				Model:     c.model,
				Timestamp: time.Now(),
				Duration:  time.Since(start),
				Error:     err,
				Retryable: llmhttp.ShouldRetry(err),
			})
		}
		return nil, err
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Duration:     time.Since(start),
			TokensIn:     response.TokensIn,
			TokensOut:    response.TokensOut,
			StatusCode:   http.StatusOK,
			FinishReason: response.FinishReason,
		})
	}
	return response, nil
}

// handleErrorResponse converts API error payloads to typed errors.
func (c *HTTPClient) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return llmhttp.ClassifyStatus(providerName, statusCode, message)
}

// sanitizeTransportError strips the request URL, and with it the key
// query parameter, from transport error text.
func sanitizeTransportError(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "?key="); i >= 0 {
		end := i + len("?key=")
		for end < len(msg) && msg[end] != '"' && msg[end] != ' ' && msg[end] != '&' {
			end++
		}
		msg = msg[:i] + "?key=[REDACTED]" + msg[end:]
	}
	return msg
}
