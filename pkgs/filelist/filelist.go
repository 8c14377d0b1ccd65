// Package filelist provides functionality for parsing the master file
// list that build files are synchronized against.
//
// The format is line oriented: `#` starts a comment running to the end of
// the line and blank lines are skipped. A line of the form `name =` with
// nothing after the equals sign opens a variable; every following line
// adds one file to it. A line of the form `$(name)` inserts the entries
// of a previously filled variable at that point, by value. Repeating a
// `name =` header appends to the variable. Any other line, including one
// with text after an equals sign, is a plain file entry.
package filelist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mksync/mksync/pkgs/rewrite"
)

var (
	varRe = regexp.MustCompile(`^(\w+)\s*=$`)
	refRe = regexp.MustCompile(`^\$\((\w+)\)$`)
)

// Parse reads and parses a file list from either provided data or a file
// path. If data is non-nil, it is used directly and the file parameter
// only labels error messages. Otherwise, the file is read from the
// provided path. A variable that never received an entry is absent from
// the result.
func Parse(file string, data []byte) (rewrite.Vars, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	vars := make(rewrite.Vars)
	cur := ""
	sc := bufio.NewScanner(reader)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := varRe.FindStringSubmatch(line); m != nil {
			cur = m[1]
			continue
		}
		if cur == "" {
			return nil, fmt.Errorf("%s:%d: entry %q outside a variable definition", file, n, line)
		}
		if m := refRe.FindStringSubmatch(line); m != nil {
			entries, ok := vars[m[1]]
			if !ok {
				return nil, fmt.Errorf("%s:%d: reference to undefined variable %q", file, n, m[1])
			}
			vars[cur] = append(vars[cur], entries...)
			continue
		}
		vars[cur] = append(vars[cur], line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	return vars, nil
}
