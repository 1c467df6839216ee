// Package ollama is the provider adapter for a local Ollama server.
package ollama

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
	providerName = "ollama"
	// Local models can be slow, so the default timeout is generous.
	defaultTimeout = 120 * time.Second
)

// HTTPClient talks to the Ollama Generate API.
type HTTPClient struct {
	baseURL   string
	model     string
	retryConf llmhttp.RetryConfig
	client    *http.Client
	logger    llmhttp.Logger
}

// NewHTTPClient creates a client for the given server and model.
func NewHTTPClient(baseURL, model string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		model:     model,
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
}

// APIResponse is the parsed completion.
type APIResponse struct {
	Text      string
	TokensIn  int
	TokensOut int
	Model     string
}

// Call sends prompt to the Generate API with retry on transient
// failures.
func (c *HTTPClient) Call(ctx context.Context, prompt string, options CallOptions) (*APIResponse, error) {
	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       c.model,
			Timestamp:   start,
			PromptChars: len(prompt),
		})
	}

	reqBody := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: options.System,
		Stream: false,
	}
	if options.Temperature > 0 {
		reqBody.Options = map[string]interface{}{"temperature": options.Temperature}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"

	var response *APIResponse
	operation := func(ctx context.Context) error {
		// A fresh request per attempt: the body reader is consumed by
		// each send.
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
			if strings.Contains(err.Error(), "connection refused") {
				return &llmhttp.Error{
					Type:      llmhttp.ErrTypeServiceUnavailable,
					Message:   fmt.Sprintf("server not reachable at %s; is Ollama running? (ollama serve)", c.baseURL),
					Retryable: false,
					Provider:  providerName,
				}
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

		var genResp GenerateResponse
		if err := json.Unmarshal(body, &genResp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if !genResp.Done {
			return llmhttp.NewInvalidRequestError(providerName, "incomplete response (done=false)")
		}
		if genResp.Response == "" {
			return llmhttp.NewInvalidRequestError(providerName, "empty response")
		}

		response = &APIResponse{
			Text:      genResp.Response,
			TokensIn:  genResp.PromptEvalCount,
			TokensOut: genResp.EvalCount,
			Model:     genResp.Model,
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
			Provider:   providerName,
			Model:      response.Model,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			TokensIn:   response.TokensIn,
			TokensOut:  response.TokensOut,
			StatusCode: http.StatusOK,
		})
	}
	return response, nil
}

// handleErrorResponse converts API error payloads to typed errors. A
// 404 means the model has not been pulled, so the message carries the
// remedy.
func (c *HTTPClient) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}
	if statusCode == http.StatusNotFound {
		message = fmt.Sprintf("%s (pull it with: ollama pull %s)", message, c.model)
	}
	return llmhttp.ClassifyStatus(providerName, statusCode, message)
}
