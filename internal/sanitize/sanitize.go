// Package sanitize recovers a well-formed review response from raw
// model output. Models wrap JSON in markdown fences, omit the wrapping
// braces, or truncate mid-object; the cleaning steps here repair those
// specific malformations and nothing else. Content is never invented:
// if no object can be reconstructed the caller gets an explicit error
// carrying the cleaned text for diagnostics.
package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lutradev/lutra/internal/domain"
)

// UnrecoverableResponseError reports raw output from which no JSON
// object could be reconstructed. Cleaned holds the text after all
// repair steps, for diagnostics.
type UnrecoverableResponseError struct {
	Cleaned string
	Err     error
}

func (e *UnrecoverableResponseError) Error() string {
	return fmt.Sprintf("unrecoverable model response: %v (cleaned: %q)", e.Err, truncate(e.Cleaned, 200))
}

func (e *UnrecoverableResponseError) Unwrap() error {
	return e.Err
}

// fencePattern matches a markdown code fence with an optional language tag.
var fencePattern = regexp.MustCompile("```[a-zA-Z0-9]*")

// Sanitize cleans raw model output and parses it into a ReviewResponse.
// Each cleaning step is idempotent on already-clean input, so valid
// JSON passes through unchanged. Absent fields default to empty slices.
func Sanitize(raw string) (domain.ReviewResponse, error) {
	cleaned := Clean(raw)

	var resp domain.ReviewResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return domain.ReviewResponse{}, &UnrecoverableResponseError{Cleaned: cleaned, Err: err}
	}

	if resp.Comments == nil {
		resp.Comments = []domain.ProposedComment{}
	}
	if resp.CommentsToDelete == nil {
		resp.CommentsToDelete = []int64{}
	}
	return resp, nil
}

// Clean applies the repair steps without parsing: trim whitespace,
// collapse markdown fences out of the text, wrap a bare quoted key in
// braces, ensure a leading brace, and balance unclosed delimiters from
// trailing truncation.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = fencePattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// A response that starts with a quoted key lost its object wrapper.
	if strings.HasPrefix(s, `"`) {
		s = "{" + s + "}"
	}

	if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}

	return balanceDelimiters(s)
}

// balanceDelimiters appends closers for delimiters left open by
// truncation and prepends openers for surplus closers. Delimiters are
// only ever added at the ends, never inserted in the middle; a response
// truncated inside a string literal is left as-is for the parser to
// reject rather than guessed at.
func balanceDelimiters(s string) string {
	var stack []byte
	var prefix strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == opener(c) {
				stack = stack[:len(stack)-1]
			} else if len(stack) == 0 {
				prefix.WriteByte(opener(c))
			}
		}
	}

	if inString {
		return s
	}

	var suffix strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			suffix.WriteByte('}')
		case '[':
			suffix.WriteByte(']')
		}
	}

	return prefix.String() + s + suffix.String()
}

func opener(closer byte) byte {
	if closer == '}' {
		return '{'
	}
	return '['
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
