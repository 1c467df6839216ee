package fix

import (
	"fmt"
	"strings"

	"github.com/lutradev/lutra/internal/domain"
)

const fixPromptHeader = `You are fixing a file to address code review comments.

Rules:
1. Change only what the review comments require.
2. Preserve the original style, formatting, and functionality.
3. Do not remove or modify unrelated code.
4. Return the complete fixed file content and nothing else.
   Do not wrap the content in a code fence.`

// BuildFixPrompt renders the per-file fix prompt from the original
// content and the accepted comments targeting it.
func BuildFixPrompt(path, original string, comments []domain.ReconciledComment) string {
	var b strings.Builder
	b.WriteString(fixPromptHeader)
	b.WriteString("\n\nFile: ")
	b.WriteString(path)
	b.WriteString("\n\nReview comments:\n")
	for _, c := range comments {
		fmt.Fprintf(&b, "Line %d: %s\n", c.Line, c.Body)
	}
	b.WriteString("\nOriginal content:\n")
	b.WriteString(original)
	return b.String()
}

// ExtractContent recovers file content from raw model output. Models
// occasionally ignore the no-fence instruction; a response that is one
// fenced block collapses to the block's body. Anything else passes
// through trimmed of surrounding whitespace only: file content is
// never re-interpreted.
func ExtractContent(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[len(lines)-1], "```") {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}
