package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ChangeKind classifies a line inside a patch hunk.
type ChangeKind int

const (
	// KindContext is an unchanged line (prefix ' ').
	KindContext ChangeKind = iota
	// KindAdded is a line added in the new file (prefix '+').
	KindAdded
	// KindRemoved is a line removed from the old file (prefix '-').
	KindRemoved
)

// String returns the lowercase name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case KindContext:
		return "context"
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Line is a single content line inside a patch hunk.
type Line struct {
	Kind     ChangeKind
	Content  string // line content without the +/-/space prefix
	NewLine  *int   // line number in the new file; nil for removals
	Position int    // 1-based ordinal across the whole patch, headers included
}

// MalformedPatchError reports a hunk header that could not be parsed.
// It is the only failure mode of Build.
type MalformedPatchError struct {
	Header string
}

func (e *MalformedPatchError) Error() string {
	return fmt.Sprintf("malformed hunk header: %q", e.Header)
}

// hunkHeaderPattern matches "@@ -oldStart[,oldCount] +newStart[,newCount] @@".
var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Index maps between new-file line numbers and diff positions for one
// file's patch. It is immutable after Build and scoped to a single
// review pass.
type Index struct {
	lines     []Line
	positions map[int]int // new-file line -> diff position
}

// Build parses patch text into an Index. An empty patch yields an index
// with zero legal lines; it is not an error and represents a file with
// no reviewable changes. Build fails only when a line that looks like a
// hunk header cannot be parsed, returning *MalformedPatchError.
func Build(patch string) (*Index, error) {
	ix := &Index{positions: make(map[int]int)}
	if patch == "" {
		return ix, nil
	}

	rawLines := strings.Split(patch, "\n")
	// A trailing newline produces one empty final element; it is a
	// split artifact, not a patch line.
	if n := len(rawLines); n > 0 && rawLines[n-1] == "" {
		rawLines = rawLines[:n-1]
	}

	position := 0
	newLine := 0
	inHunk := false

	for _, raw := range rawLines {
		position++

		if strings.HasPrefix(raw, "@@") {
			m := hunkHeaderPattern.FindStringSubmatch(raw)
			if m == nil {
				return nil, &MalformedPatchError{Header: raw}
			}
			newStart, _ := strconv.Atoi(m[3])
			newLine = newStart - 1
			inHunk = true
			continue
		}

		if !inHunk {
			continue
		}

		// "\ No newline at end of file" markers occupy a physical
		// patch line but belong to neither file.
		if strings.HasPrefix(raw, `\`) {
			continue
		}

		line := Line{Position: position}
		switch {
		case strings.HasPrefix(raw, "-"):
			line.Kind = KindRemoved
			line.Content = raw[1:]
		case strings.HasPrefix(raw, "+"):
			newLine++
			line.Kind = KindAdded
			line.Content = raw[1:]
			line.NewLine = intPtr(newLine)
		case strings.HasPrefix(raw, " "):
			newLine++
			line.Kind = KindContext
			line.Content = raw[1:]
			line.NewLine = intPtr(newLine)
		default:
			// Prefix-less line (empty context from some diff tools);
			// treated as context.
			newLine++
			line.Kind = KindContext
			line.Content = raw
			line.NewLine = intPtr(newLine)
		}

		if line.NewLine != nil {
			ix.positions[*line.NewLine] = line.Position
		}
		ix.lines = append(ix.lines, line)
	}

	return ix, nil
}

// Lines returns the recorded diff lines in patch order.
func (ix *Index) Lines() []Line {
	return ix.lines
}

// PositionFor returns the diff position for a new-file line number and
// whether the line is present in the diff as added or context.
func (ix *Index) PositionFor(newLine int) (int, bool) {
	pos, ok := ix.positions[newLine]
	return pos, ok
}

// IsCommentable reports whether a comment may target the given
// new-file line, i.e. the line appears in the diff as added or context.
func (ix *Index) IsCommentable(newLine int) bool {
	_, ok := ix.positions[newLine]
	return ok
}

// LegalLines returns the commentable new-file line numbers in
// ascending order.
func (ix *Index) LegalLines() []int {
	lines := make([]int, 0, len(ix.positions))
	for l := range ix.positions {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

func intPtr(n int) *int {
	return &n
}
