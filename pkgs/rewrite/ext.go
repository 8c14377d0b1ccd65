package rewrite

import "strings"

// Ext returns the extension of a file name, from its final dot inclusive,
// or "" when the name has none. Unlike filepath.Ext it never looks past a
// path separator, either kind, so "gtk.d/window" has no extension.
func Ext(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			return name[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}

// SwapExt replaces the extension of a file name with ext, which must
// include the leading dot. A name without an extension gets ext appended.
func SwapExt(name, ext string) string {
	return strings.TrimSuffix(name, Ext(name)) + ext
}
