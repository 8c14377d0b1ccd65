package rewrite

import (
	"bufio"
	"io"
	"strings"
)

// Scanner reads a stream line by line while keeping track of each line's
// terminator, so that a rewriter can reproduce the input byte for byte.
// The API follows bufio.Scanner: call Scan until it returns false, then
// check Err.
type Scanner struct {
	r    *bufio.Reader
	text string
	eol  string
	err  error
	done bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Scan advances to the next line. It returns false at the end of the input
// or on a read error.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		s.done = true
		if err != io.EOF {
			s.err = err
			return false
		}
		if line == "" {
			return false
		}
		// Final line without a terminator.
		s.text, s.eol = line, ""
		return true
	}
	if strings.HasSuffix(line, "\r\n") {
		s.text, s.eol = line[:len(line)-2], "\r\n"
	} else {
		s.text, s.eol = line[:len(line)-1], "\n"
	}
	return true
}

// Text returns the current line without its terminator.
func (s *Scanner) Text() string { return s.text }

// EOL returns the current line's terminator: "\n", "\r\n", or "" when the
// input ended without one.
func (s *Scanner) EOL() string { return s.eol }

// Err returns the first error encountered while reading.
func (s *Scanner) Err() error { return s.err }
