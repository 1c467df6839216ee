package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EquivalentBodies reports whether two comment bodies say the same thing
// for de-duplication purposes: byte-equal after trimming surrounding
// whitespace and applying NFC normalization. Model output frequently
// differs from stored comments only in Unicode composition of emoji and
// accented characters, so raw byte comparison would under-deduplicate.
func EquivalentBodies(a, b string) bool {
	return canonicalBody(a) == canonicalBody(b)
}

func canonicalBody(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
