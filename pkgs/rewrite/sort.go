package rewrite

import "strings"

// CompareFold compares two strings case-insensitively and returns:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// The rewriters use it both to detect that a file list was kept in
// alphabetical order and to restore that order after inserting new files.
func CompareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
