// Package openai is the OpenAI Chat Completion provider adapter.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	llmhttp "github.com/lutradev/lutra/internal/adapter/llm/http"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 60 * time.Second
)

// HTTPClient talks to the OpenAI Chat Completion API.
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
	Model        string
	FinishReason string
}

// Call sends prompt to the Chat Completion API with retry on
// transient failures and returns the first choice.
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

	messages := []Message{}
	if options.System != "" {
		messages = append(messages, Message{Role: "system", Content: options.System})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"

	var response *APIResponse
	operation := func(ctx context.Context) error {
		// A fresh request per attempt: the body reader is consumed by
		// each send.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return llmhttp.NewTimeoutError(providerName, err.Error())
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleErrorResponse(resp.StatusCode, body)
		}

		var chatResp ChatCompletionResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return llmhttp.NewInvalidRequestError(providerName, "no choices in response")
		}

		response = &APIResponse{
			Text:         chatResp.Choices[0].Message.Content,
			TokensIn:     chatResp.Usage.PromptTokens,
			TokensOut:    chatResp.Usage.CompletionTokens,
			Model:        chatResp.Model,
			FinishReason: chatResp.Choices[0].FinishReason,
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
			Model:        response.Model,
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
	} else if len(body) > 0 && len(body) < 200 {
		message = string(body)
	}
	return llmhttp.ClassifyStatus(providerName, statusCode, message)
}
