// Package http holds the transport plumbing shared by all model
// provider adapters: error classification, retry with backoff, and
// structured call logging with credential redaction.
package http

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Logger records provider API traffic. Implementations must never
// write prompt or response bodies; only shapes, timings, and outcomes.
type Logger interface {
	LogRequest(ctx context.Context, req RequestLog)
	LogResponse(ctx context.Context, resp ResponseLog)
	LogError(ctx context.Context, err ErrorLog)
}

// RequestLog describes one outgoing provider request.
type RequestLog struct {
	Provider    string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string // redacted before writing
}

// ResponseLog describes one provider response.
type ResponseLog struct {
	Provider     string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	TokensIn     int
	TokensOut    int
	StatusCode   int
	FinishReason string
}

// ErrorLog describes one failed provider call.
type ErrorLog struct {
	Provider   string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines logging verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat selects the output encoding.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// DefaultLogger writes structured call logs via the standard logger.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger with the given verbosity, format,
// and key redaction setting.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, format: format, redactKeys: redactKeys}
}

// LogRequest logs an outgoing request at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	key := l.RedactAPIKey(req.APIKey)
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"debug","type":"request","provider":"%s","model":"%s","timestamp":"%s","prompt_chars":%d,"api_key":"%s"}`,
			req.Provider, req.Model, req.Timestamp.Format(time.RFC3339), req.PromptChars, key)
		return
	}
	log.Printf("[DEBUG] %s/%s: request sent (prompt=%d chars, key=%s)",
		req.Provider, req.Model, req.PromptChars, key)
}

// LogResponse logs a completed call at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"info","type":"response","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"tokens_in":%d,"tokens_out":%d,"status_code":%d,"finish_reason":"%s"}`,
			resp.Provider, resp.Model, resp.Timestamp.Format(time.RFC3339),
			resp.Duration.Milliseconds(), resp.TokensIn, resp.TokensOut,
			resp.StatusCode, resp.FinishReason)
		return
	}
	log.Printf("[INFO] %s/%s: response received (duration=%.1fs, tokens=%d/%d)",
		resp.Provider, resp.Model, resp.Duration.Seconds(), resp.TokensIn, resp.TokensOut)
}

// LogError logs a failed call at error level.
func (l *DefaultLogger) LogError(ctx context.Context, e ErrorLog) {
	if l.level > LogLevelError {
		return
	}

	retryable := "non-retryable"
	if e.Retryable {
		retryable = "retryable"
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"error","type":"error","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"error":"%s","error_type":%d,"status_code":%d,"retryable":%t}`,
			e.Provider, e.Model, e.Timestamp.Format(time.RFC3339),
			e.Duration.Milliseconds(), e.Error.Error(), e.ErrorType, e.StatusCode, e.Retryable)
		return
	}
	log.Printf("[ERROR] %s/%s: call failed (status=%d, %s): %v",
		e.Provider, e.Model, e.StatusCode, retryable, e.Error)
}

// RedactAPIKey keeps only the last 4 characters of a key. Keys too
// short to safely truncate are fully redacted.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}
