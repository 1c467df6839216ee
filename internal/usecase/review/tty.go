package review

import "golang.org/x/term"

// IsInteractive reports whether the given file descriptor is attached
// to a terminal. The CLI uses this to decide whether to ask for
// confirmation before posting comments.
func IsInteractive(fd int) bool {
	return term.IsTerminal(fd)
}
