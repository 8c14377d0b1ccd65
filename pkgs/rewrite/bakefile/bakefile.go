// Package bakefile rewrites the source file lists of bakefile-0 files.
//
// File lists live in tag-delimited blocks of the form
//
//	<set var="SOURCES" hints="files">
//	    file1.cpp
//	    file2.cpp
//	</set>
//
// possibly wrapped in <if> conditionals. Files gone from the
// authoritative list are removed and new ones are inserted, in the order
// of that list, immediately before the closing tag; when the whole list
// is conditional the insertion happens inside the conditional, before its
// closing </if>. Everything else passes through untouched.
package bakefile

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/mksync/mksync/pkgs/rewrite"
)

var (
	setRe     = regexp.MustCompile(`^\s*<set\s+var="([^"]+)"\s+hints="files">\s*$`)
	commentRe = regexp.MustCompile(`<!--.*?-->`)
)

type bodyLine struct {
	text, eol string
}

// block is the scan state of one <set> definition.
type block struct {
	name      string
	startLine int
	order     []string        // authoritative files, in list order
	seen      map[string]bool // authoritative file -> seen in the input
	raw       []bodyLine      // body as scanned, for the bail-out path
	kept      []bodyLine      // body lines to re-emit
	nesting   int             // currently open <if> tags
	endsAtIf  bool            // insertion happens before the closing </if>
	files     int             // file lines seen so far
	eol       string          // terminator for inserted lines
	changed   bool
}

func newBlock(name string, list []string, headerEOL string, n int) *block {
	b := &block{
		name:      name,
		startLine: n,
		order:     list,
		seen:      make(map[string]bool, len(list)),
		eol:       headerEOL,
	}
	if b.eol == "" {
		b.eol = "\n"
	}
	for _, f := range list {
		b.seen[f] = false
	}
	return b
}

// line consumes one body line and reports whether it terminates the block.
// The terminating line itself is not kept; flush receives it separately so
// that the missing files can be inserted in front of it.
func (b *block) line(text, eol string, n int, sink rewrite.Sink) bool {
	b.raw = append(b.raw, bodyLine{text, eol})
	content := strings.TrimSpace(commentRe.ReplaceAllString(text, ""))
	switch {
	case content == "":
		b.keep(text, eol)
	case strings.HasPrefix(content, "<if "):
		// By convention the conditional files close the list, so when no
		// file was seen yet the new ones belong inside the conditional.
		b.nesting++
		if b.files == 0 {
			b.endsAtIf = true
		}
		b.keep(text, eol)
	case strings.HasPrefix(content, "</if>"):
		b.nesting--
		if b.endsAtIf && b.nesting == 0 {
			return true
		}
		b.keep(text, eol)
	case strings.HasPrefix(content, "</set>"):
		return true
	default:
		// A file name.
		b.files++
		seen, ok := b.seen[content]
		switch {
		case !ok:
			// Gone from the authoritative list: drop the line.
			b.changed = true
		case seen:
			sink.Warnf("line %d: duplicate file %s in %s", n, content, b.name)
			b.keep(text, eol)
		default:
			b.seen[content] = true
			b.keep(text, eol)
		}
	}
	return false
}

func (b *block) keep(text, eol string) {
	if eol != "" {
		b.eol = eol
	}
	b.kept = append(b.kept, bodyLine{text, eol})
}

// flush writes the retained body, the files never seen in the input and
// finally the terminating line.
func (b *block) flush(w *bufio.Writer, termText, termEOL string) {
	for _, l := range b.kept {
		w.WriteString(l.text)
		w.WriteString(l.eol)
	}
	for _, name := range b.order {
		if b.seen[name] {
			continue
		}
		b.seen[name] = true
		b.changed = true
		w.WriteString("    " + name)
		w.WriteString(b.eol)
	}
	w.WriteString(termText)
	w.WriteString(termEOL)
}

// Update synchronizes the <set var="..." hints="files"> blocks of the
// bakefile read from in with vars, writing the full rewritten text to out,
// and reports whether anything changed. A block whose terminator never
// arrives is re-emitted exactly as read and contributes no change.
func Update(in io.Reader, out io.Writer, vars rewrite.Vars, sink rewrite.Sink) (bool, error) {
	if sink == nil {
		sink = rewrite.Discard
	}
	w := bufio.NewWriter(out)
	sc := rewrite.NewScanner(in)

	var b *block
	changed := false
	for n := 1; sc.Scan(); n++ {
		text, eol := sc.Text(), sc.EOL()
		if b != nil {
			if b.line(text, eol, n, sink) {
				b.flush(w, text, eol)
				changed = changed || b.changed
				b = nil
			}
			continue
		}
		if m := setRe.FindStringSubmatch(text); m != nil {
			if list, ok := vars[m[1]]; ok {
				b = newBlock(m[1], list, eol, n)
			}
		}
		w.WriteString(text)
		w.WriteString(eol)
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	if b != nil {
		sink.Warnf("line %d: <set var=%q> is never closed, leaving it as is", b.startLine, b.name)
		for _, l := range b.raw {
			w.WriteString(l.text)
			w.WriteString(l.eol)
		}
	}
	if err := w.Flush(); err != nil {
		return false, err
	}
	return changed, nil
}
