package review

import (
	"fmt"
	"regexp"

	"github.com/lutradev/lutra/internal/domain"
)

// defaultTitlePatterns bypass review for pull requests that opt out in
// the title or are mechanical (release/dependency bumps).
var defaultTitlePatterns = []string{
	`\[skip[ -]review\]`,
	`\bwip\b`,
	`^release:`,
	`^bump `,
}

// defaultStatePatterns bypass review for pull requests that are no
// longer open.
var defaultStatePatterns = []string{
	`^closed$`,
	`^merged$`,
}

// SkipPolicy decides whether a pull request should be reviewed at all,
// based on case-insensitive patterns matched against title and state.
type SkipPolicy struct {
	titlePatterns []*regexp.Regexp
	statePatterns []*regexp.Regexp
}

// NewSkipPolicy compiles the given patterns. Empty slices fall back to
// the defaults.
func NewSkipPolicy(titlePatterns, statePatterns []string) (SkipPolicy, error) {
	if len(titlePatterns) == 0 {
		titlePatterns = defaultTitlePatterns
	}
	if len(statePatterns) == 0 {
		statePatterns = defaultStatePatterns
	}

	policy := SkipPolicy{}
	for _, p := range titlePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return SkipPolicy{}, fmt.Errorf("compile title pattern %q: %w", p, err)
		}
		policy.titlePatterns = append(policy.titlePatterns, re)
	}
	for _, p := range statePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return SkipPolicy{}, fmt.Errorf("compile state pattern %q: %w", p, err)
		}
		policy.statePatterns = append(policy.statePatterns, re)
	}
	return policy, nil
}

// ShouldSkip reports whether the pull request is excluded from review
// and the matched pattern for diagnostics.
func (s SkipPolicy) ShouldSkip(pr domain.PullRequest) (bool, string) {
	for _, re := range s.titlePatterns {
		if re.MatchString(pr.Title) {
			return true, fmt.Sprintf("title matches %s", re.String())
		}
	}
	for _, re := range s.statePatterns {
		if re.MatchString(pr.State) {
			return true, fmt.Sprintf("state matches %s", re.String())
		}
	}
	return false, ""
}
