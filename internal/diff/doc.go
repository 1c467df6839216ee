// Package diff parses unified diff patch text into an addressable
// line/position index for review comments.
//
// Two distinct coordinates are tracked for every line and must not be
// conflated: the diff position (1-based ordinal of the physical line
// within the whole patch, counting hunk headers) and the new-file line
// number (1-based line in the post-change file, absent for removals).
// Position-addressed comment APIs want the former, line-addressed APIs
// the latter; the index exposes both so the caller can pick per
// platform capability.
package diff
