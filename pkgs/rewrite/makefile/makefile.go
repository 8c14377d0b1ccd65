// Package makefile rewrites the source file lists embedded in makefiles.
//
// The rewriter recognizes variable definitions of the form
//
//	SOURCES = \
//	    file1.cpp \
//	    file2.cpp
//
// followed by a blank line, and synchronizes their contents with an
// authoritative list of files: entries gone from the list are removed, new
// ones are appended following the indentation, line-continuation and
// ordering conventions already used by the block, and entries are
// translated between the list's extension and the one the makefile uses
// (".cpp" versus ".o", say). Everything else in the input, comments and
// unrelated variables included, is passed through untouched.
package makefile

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/mksync/mksync/pkgs/rewrite"
)

var (
	// headerRe matches a candidate variable assignment or target line:
	// leading space, a name, one of "=", ":=", "::=" or ":", and the rest.
	headerRe = regexp.MustCompile(`^\s*([^\s:=#]+)\s*:?(:?=|:)\s*(.*)$`)

	// entryRe matches one file of a definition: indentation, a single
	// token and an optional trailing continuation backslash.
	entryRe = regexp.MustCompile(`^(\s*)(\S+?)(\s*\\?)$`)

	objectsRe = regexp.MustCompile(`(?i)^obj(?:ects)?$`)
	suffixRe  = regexp.MustCompile(`(?i)^(.+)_(?:objects|obj|sources|src|headers|hdr)$`)
	makevarRe = regexp.MustCompile(`^([^$]+)\$\(.*\)$`)
)

// resolve maps a variable or target name found in the makefile to the
// authoritative list it should be synchronized with. The rules are tried
// in order and the first one naming a defined list wins:
//
//  1. the name itself, exactly;
//  2. "objects" or "obj" (any case) use the "sources" list;
//  3. a name of the form prefix_objects, prefix_obj, prefix_sources,
//     prefix_src, prefix_headers or prefix_hdr (suffix in any case) uses
//     "prefix", or failing that "prefix_sources";
//  4. a target of the form prefix$(...) uses "prefix".
//
// Anything else is not a file list and is left alone.
func resolve(vars rewrite.Vars, name string) ([]string, bool) {
	if list, ok := vars[name]; ok {
		return list, true
	}
	if objectsRe.MatchString(name) {
		if list, ok := vars["sources"]; ok {
			return list, true
		}
	}
	if m := suffixRe.FindStringSubmatch(name); m != nil {
		if list, ok := vars[m[1]]; ok {
			return list, true
		}
		if list, ok := vars[m[1]+"_sources"]; ok {
			return list, true
		}
	}
	if m := makevarRe.FindStringSubmatch(name); m != nil {
		if list, ok := vars[m[1]]; ok {
			return list, true
		}
	}
	return nil, false
}

// line is one retained file entry of a block, kept split into its parts so
// that the trailing continuation marker and the terminator can be fixed up
// when the set of files changes.
type line struct {
	indent, file, tail, eol string
}

func (l line) text() string { return l.indent + l.file + l.tail }

// block is the scan state of one variable definition, alive from its
// header line until the blank line closing it.
type block struct {
	name  string          // variable name, for diagnostics
	order []string        // authoritative files, in list order
	seen  map[string]bool // authoritative file -> seen in the input

	srcExt  string // extension used by the authoritative list
	makeExt string // extension used by the makefile, once observed

	indent   string // indentation of the entries, from the first one
	tail     string // generic tail carrying the continuation marker
	lastTail string // tail of the last entry line as scanned
	eol      string // generic line terminator within the block
	lastEOL  string // terminator of the last entry line as scanned
	needLead bool   // the header line had no terminator of its own

	entries int    // entry lines scanned, retained or not
	sorted  bool   // retained entries were in alphabetical order so far
	prev    string // previous retained line, for the order check
	prevSet bool

	lines   []line // retained entries
	changed bool
}

func newBlock(name string, list []string, headerEOL string) *block {
	b := &block{
		name:     name,
		order:    list,
		seen:     make(map[string]bool, len(list)),
		eol:      headerEOL,
		lastEOL:  headerEOL,
		needLead: headerEOL == "",
		sorted:   true,
	}
	if b.eol == "" {
		b.eol = "\n"
	}
	for _, f := range list {
		b.seen[f] = false
	}
	for _, f := range list {
		if ext := rewrite.Ext(f); ext != "" {
			b.srcExt = ext
			break
		}
	}
	return b
}

// entry consumes one file line of the block.
func (b *block) entry(indent, file, tail, eol string, n int, sink rewrite.Sink) {
	if b.entries == 0 {
		b.indent = indent
	} else if indent != b.indent {
		sink.Warnf("line %d: inconsistent indent of %s in the definition of %s", n, file, b.name)
	}
	b.entries++
	if b.tail == "" && strings.HasSuffix(tail, `\`) {
		b.tail = tail
	}
	b.lastTail = tail
	b.lastEOL = eol

	// Translate the name to the extension used by the authoritative list
	// before looking it up.
	name := file
	if ext := rewrite.Ext(file); ext == "" {
		sink.Warnf("line %d: file %s has no extension", n, file)
	} else {
		if b.makeExt == "" {
			b.makeExt = ext
		} else if ext != b.makeExt {
			sink.Warnf("line %d: unexpected extension %s of %s, expected %s", n, ext, file, b.makeExt)
		}
		if b.srcExt != "" {
			name = rewrite.SwapExt(file, b.srcExt)
		}
	}

	seen, ok := b.seen[name]
	if !ok {
		// Not in the authoritative list any more: drop the line.
		b.changed = true
		return
	}
	if seen {
		sink.Warnf("line %d: duplicate file %s in the definition of %s", n, file, b.name)
	} else {
		b.seen[name] = true
	}

	l := line{indent, file, tail, eol}
	if b.prevSet && rewrite.CompareFold(l.text(), b.prev) < 0 {
		b.sorted = false
	}
	b.prev = l.text()
	b.prevSet = true
	b.lines = append(b.lines, l)
}

// flush completes the block and writes it out: files never seen in the
// input are appended, the alphabetical order is restored if the block had
// one, and the final line gets the tail the original final line had.
func (b *block) flush(w *bufio.Writer) {
	var added []string
	for _, name := range b.order {
		if !b.seen[name] {
			b.seen[name] = true
			added = append(added, name)
		}
	}
	if len(added) > 0 {
		b.changed = true
		// Every line but the last must carry the continuation marker, so
		// the former last line gets one back before anything is appended.
		if n := len(b.lines); n > 0 && !strings.HasSuffix(b.lines[n-1].tail, `\`) {
			b.lines[n-1].tail = b.genericTail()
		}
		indent, tail := b.entryIndent(), b.genericTail()
		for _, name := range added {
			b.lines = append(b.lines, line{indent, b.emitName(name), tail, b.eol})
		}
		if b.sorted {
			sort.SliceStable(b.lines, func(i, j int) bool {
				return rewrite.CompareFold(b.lines[i].text(), b.lines[j].text()) < 0
			})
		}
	}
	if n := len(b.lines); n > 0 {
		b.lines[n-1].tail = b.lastTail
		b.lines[n-1].eol = b.lastEOL
		if b.needLead {
			// The header was the last line of the input: start its
			// continuation on a fresh line.
			w.WriteString(b.eol)
		}
	}
	for i, l := range b.lines {
		eol := l.eol
		if eol == "" && i < len(b.lines)-1 {
			eol = b.eol
		}
		w.WriteString(l.text())
		w.WriteString(eol)
	}
}

// emitName translates an authoritative file name to the extension the
// makefile uses, when the two differ.
func (b *block) emitName(name string) string {
	if b.srcExt != "" && b.makeExt != "" && b.srcExt != b.makeExt {
		return rewrite.SwapExt(name, b.makeExt)
	}
	return name
}

func (b *block) entryIndent() string {
	if b.entries > 0 {
		return b.indent
	}
	return "\t"
}

func (b *block) genericTail() string {
	if b.tail != "" {
		return b.tail
	}
	return ` \`
}

// Update synchronizes the file-list variables of the makefile read from in
// with vars, writing the full rewritten text to out, and reports whether
// anything changed. The error is only ever an I/O failure of one of the
// streams; sink receives a diagnostic for every construct that looks like a
// file list but does not quite have the supported shape.
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
			if strings.TrimSpace(text) == "" {
				// The blank line closes the definition.
				b.flush(w)
				changed = changed || b.changed
				b = nil
			} else if m := entryRe.FindStringSubmatch(text); m != nil {
				b.entry(m[1], m[2], m[3], eol, n, sink)
				continue
			} else {
				sink.Warnf("line %d: expected a blank line after the definition of %s", n, b.name)
				b.flush(w)
				changed = changed || b.changed
				b = nil
			}
		}
		// Not inside a definition: check whether this line starts one.
		if m := headerRe.FindStringSubmatch(text); m != nil {
			if list, ok := resolve(vars, m[1]); ok {
				if strings.HasSuffix(m[3], `\`) {
					b = newBlock(m[1], list, eol)
				} else {
					sink.Warnf("line %d: unsupported format of variable %s", n, m[1])
				}
			}
		}
		w.WriteString(text)
		w.WriteString(eol)
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	if b != nil {
		// The input ended inside the definition; treat it as closed.
		b.flush(w)
		changed = changed || b.changed
	}
	if err := w.Flush(); err != nil {
		return false, err
	}
	return changed, nil
}
