package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lutradev/lutra/internal/domain"
)

// promptHeader instructs the model on the response contract. The legal
// line list is the model's only view of where comments may land; the
// reconciler enforces it again on the way back.
const promptHeader = `Review the following code changes and provide feedback.
Focus on correctness, security, performance, and maintainability.

Respond with a JSON object of this exact shape:
{
  "comments": [{"path": string, "line": int, "body": string}],
  "comments_to_delete": [int]
}

Only comment on the legal line numbers listed below. Use
"comments_to_delete" for ids of existing comments that are outdated.`

// PromptInput holds the raw material for one file's review prompt.
type PromptInput struct {
	Path         string
	Patch        string
	LegalLines   []int
	Existing     []domain.ExistingComment
	Instructions string
}

// BuildPrompt renders the per-file review prompt. When counter reports
// the patch over maxTokens, the patch tail is truncated so the request
// stays within the provider's context window; metadata and existing
// comments are never dropped.
func BuildPrompt(in PromptInput, counter TokenCounter, maxTokens int) string {
	patch := in.Patch
	if counter != nil && maxTokens > 0 {
		patch = truncateToTokens(patch, counter, maxTokens)
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nFile: ")
	b.WriteString(in.Path)
	b.WriteString("\nLegal lines: ")
	b.WriteString(formatLines(in.LegalLines))
	b.WriteString("\n\nPatch:\n")
	b.WriteString(patch)

	b.WriteString("\n\nExisting comments:\n")
	b.WriteString(formatExisting(in.Existing))

	if in.Instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(in.Instructions)
	}

	return b.String()
}

func formatLines(lines []int) string {
	if len(lines) == 0 {
		return "(none)"
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, ", ")
}

func formatExisting(existing []domain.ExistingComment) string {
	if len(existing) == 0 {
		return "[]"
	}
	type wireComment struct {
		ID   int64  `json:"id"`
		Line int    `json:"line"`
		Body string `json:"body"`
	}
	wire := make([]wireComment, len(existing))
	for i, c := range existing {
		wire[i] = wireComment{ID: c.ID, Line: c.Line, Body: c.Body}
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// truncateToTokens drops trailing lines until the text fits the budget.
// Whole lines only, so a partial hunk line never reaches the model.
func truncateToTokens(text string, counter TokenCounter, maxTokens int) string {
	if counter(text) <= maxTokens {
		return text
	}

	lines := strings.Split(text, "\n")
	for len(lines) > 1 {
		lines = lines[:len(lines)-1]
		candidate := strings.Join(lines, "\n")
		if counter(candidate) <= maxTokens {
			return candidate + "\n... (patch truncated)"
		}
	}
	return lines[0]
}
