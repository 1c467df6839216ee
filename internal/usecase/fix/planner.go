// Package fix turns accepted review comments into committed code
// fixes. Comments are grouped per file and each file is fixed by an
// independent model invocation; one file failing leaves every other
// file's fix intact and never corrupts the failed file.
package fix

import (
	"sort"

	"github.com/lutradev/lutra/internal/domain"
)

// Plan groups the accepted comments by file path. Pure grouping with
// no failure mode; comment order within a file is preserved.
func Plan(accepted []domain.ReconciledComment) map[string][]domain.ReconciledComment {
	plan := make(map[string][]domain.ReconciledComment)
	for _, c := range accepted {
		plan[c.Path] = append(plan[c.Path], c)
	}
	return plan
}

// sortedPaths returns the plan's file paths in ascending order so fix
// generation proceeds deterministically.
func sortedPaths(plan map[string][]domain.ReconciledComment) []string {
	paths := make([]string, 0, len(plan))
	for p := range plan {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
