// Package observability provides the structured logger behind the
// pipeline logging ports.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Level is the logging verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level; unknown values are info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled, structured log lines. It implements the
// logging ports of the review and fix pipelines.
type Logger struct {
	level  Level
	asJSON bool
}

// NewLogger creates a Logger. format is "json" or "human".
func NewLogger(level Level, format string) *Logger {
	return &Logger{level: level, asJSON: strings.EqualFold(format, "json")}
}

// LogInfo writes an info-level event.
func (l *Logger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LevelInfo, "info", message, fields)
}

// LogWarning writes a warning-level event.
func (l *Logger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LevelWarning, "warning", message, fields)
}

// LogError writes an error-level event.
func (l *Logger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LevelError, "error", message, fields)
}

func (l *Logger) write(level Level, name, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	if l.asJSON {
		entry := map[string]interface{}{
			"level":     name,
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   message,
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			log.Printf(`{"level":"error","message":"marshal log entry: %s"}`, err)
			return
		}
		log.Print(string(data))
		return
	}

	log.Printf("[%s] %s%s", strings.ToUpper(name), message, formatFields(fields))
}

// formatFields renders fields as " (k=v, k=v)" in key order so human
// output is stable.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
