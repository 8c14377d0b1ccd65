// Package msbuild rewrites the source and header item groups of MSBuild
// project files.
//
// Synchronization applies to attribute-less <ItemGroup> sections. The
// first element of a group decides what it holds: <ClCompile> entries are
// matched against the "sources" list and <ClInclude> entries against the
// "headers" list. Entries may be self-closing or paired with child
// elements; a retained paired entry keeps its children verbatim while a
// stale one is dropped whole. Path separators are normalized for
// comparison only, so the file keeps its native backslashes. Groups
// holding anything else pass through untouched.
package msbuild

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/mksync/mksync/pkgs/rewrite"
)

var entryRe = regexp.MustCompile(`^(\s*)<(ClCompile|ClInclude)\s+Include="([^"]+)"\s*(/?)>\s*$`)

// varKeys maps the element kind of a group to its authoritative list.
var varKeys = map[string]string{
	"ClCompile": "sources",
	"ClInclude": "headers",
}

type bodyLine struct {
	text, eol string
}

// item is one unit of an item group: a file entry with its child lines,
// or a single opaque line kept in place.
type item struct {
	entry   bool
	include string // Include attribute, as written
	lines   []bodyLine
}

// group is the scan state of one <ItemGroup> section.
type group struct {
	startLine    int
	kind         string // "ClCompile" or "ClInclude", empty until fixed
	key          string // vars key for the kind
	order        []string
	seen         map[string]bool // normalized path -> seen in the input
	raw          []bodyLine      // body as scanned, for the bail-out paths
	items        []item
	open         *item // paired entry being collected
	openDrop     bool  // the open entry is stale
	headerIndent string
	indent       string // first entry's indent
	sep          string // separator style of the group
	eol          string // terminator for inserted lines
	hasOpaque    bool
	sorted       bool
	prev         string
	prevSet      bool
	changed      bool
}

func newGroup(n int, headerText, headerEOL string) *group {
	g := &group{
		startLine:    n,
		headerIndent: leadingWS(headerText),
		sep:          `\`,
		eol:          headerEOL,
		sorted:       true,
	}
	if g.eol == "" {
		g.eol = "\n"
	}
	return g
}

func leadingWS(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

func normalize(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// emitName renders an authoritative name in the separator style of the
// group.
func (g *group) emitName(name string) string {
	norm := normalize(name)
	if g.sep == "/" {
		return norm
	}
	return strings.ReplaceAll(norm, "/", g.sep)
}

func (g *group) entryIndent() string {
	if g.indent != "" {
		return g.indent
	}
	return g.headerIndent + "  "
}

func (g *group) keepEOL(eol string) {
	if eol != "" {
		g.eol = eol
	}
}

// add records a retained entry and tracks whether the group is still
// sorted.
func (g *group) add(it item) {
	if g.prevSet && rewrite.CompareFold(it.include, g.prev) < 0 {
		g.sorted = false
	}
	g.prev, g.prevSet = it.include, true
	g.items = append(g.items, it)
}

func (g *group) opaque(text, eol string) {
	g.hasOpaque = true
	g.items = append(g.items, item{lines: []bodyLine{{text, eol}}})
	g.keepEOL(eol)
}

// line consumes one body line. done reports that the group terminator was
// reached; ok is false when the group turns out not to be a file list,
// in which case the caller re-emits the raw buffer and passes the rest
// through.
func (g *group) line(text, eol string, n int, vars rewrite.Vars, sink rewrite.Sink) (done, ok bool) {
	if g.open != nil {
		g.raw = append(g.raw, bodyLine{text, eol})
		if strings.TrimSpace(text) == "</"+g.kind+">" {
			if !g.openDrop {
				g.open.lines = append(g.open.lines, bodyLine{text, eol})
				g.keepEOL(eol)
				g.add(*g.open)
			}
			g.open, g.openDrop = nil, false
			return false, true
		}
		if !g.openDrop {
			g.open.lines = append(g.open.lines, bodyLine{text, eol})
			g.keepEOL(eol)
		}
		return false, true
	}

	if strings.TrimSpace(text) == "</ItemGroup>" {
		return true, true
	}
	g.raw = append(g.raw, bodyLine{text, eol})

	m := entryRe.FindStringSubmatch(text)
	if m == nil {
		trimmed := strings.TrimSpace(text)
		if g.kind == "" && trimmed != "" && !strings.HasPrefix(trimmed, "<!--") {
			// Not a file list group.
			return false, false
		}
		g.opaque(text, eol)
		return false, true
	}
	indent, kind, include, selfClosing := m[1], m[2], m[3], m[4] == "/"

	if g.kind == "" {
		key := varKeys[kind]
		list, exists := vars[key]
		if !exists {
			return false, false
		}
		g.kind, g.key = kind, key
		g.order = list
		g.seen = make(map[string]bool, len(list))
		for _, f := range list {
			g.seen[normalize(f)] = false
		}
		g.indent = indent
		if strings.ContainsRune(include, '/') && !strings.ContainsRune(include, '\\') {
			g.sep = "/"
		}
	} else if kind != g.kind {
		sink.Warnf("line %d: unexpected <%s> in a <%s> group", n, kind, g.kind)
		g.opaque(text, eol)
		return false, true
	}

	it := item{entry: true, include: include, lines: []bodyLine{{text, eol}}}
	seen, known := g.seen[normalize(include)]
	switch {
	case !known:
		// Gone from the authoritative list: drop the entry and, for a
		// paired one, its children.
		g.changed = true
		if !selfClosing {
			g.open, g.openDrop = &it, true
		}
	case seen:
		sink.Warnf("line %d: duplicate file %s in the <%s> group", n, include, g.kind)
		if selfClosing {
			g.keepEOL(eol)
			g.add(it)
		} else {
			g.open = &it
		}
	default:
		g.seen[normalize(include)] = true
		if selfClosing {
			g.keepEOL(eol)
			g.add(it)
		} else {
			g.open = &it
		}
	}
	return false, true
}

// flush appends the files never seen in the input, re-sorts when that is
// safe and writes the group followed by the terminating line.
func (g *group) flush(w *bufio.Writer, termText, termEOL string) {
	if g.kind == "" {
		// Nothing recognizable inside, e.g. an empty group.
		for _, l := range g.raw {
			w.WriteString(l.text)
			w.WriteString(l.eol)
		}
		w.WriteString(termText)
		w.WriteString(termEOL)
		return
	}
	for _, name := range g.order {
		norm := normalize(name)
		if g.seen[norm] {
			continue
		}
		g.seen[norm] = true
		g.changed = true
		written := g.emitName(name)
		text := g.entryIndent() + "<" + g.kind + ` Include="` + written + `" />`
		g.items = append(g.items, item{entry: true, include: written, lines: []bodyLine{{text, g.eol}}})
	}
	if g.sorted && !g.hasOpaque {
		sort.SliceStable(g.items, func(i, j int) bool {
			return rewrite.CompareFold(g.items[i].include, g.items[j].include) < 0
		})
	}
	for _, it := range g.items {
		for _, l := range it.lines {
			w.WriteString(l.text)
			w.WriteString(l.eol)
		}
	}
	w.WriteString(termText)
	w.WriteString(termEOL)
}

// Update synchronizes the recognized <ItemGroup> sections of the MSBuild
// project read from in with vars, writing the full rewritten text to out,
// and reports whether anything changed. A group whose terminator never
// arrives is re-emitted exactly as read and contributes no change.
func Update(in io.Reader, out io.Writer, vars rewrite.Vars, sink rewrite.Sink) (bool, error) {
	if sink == nil {
		sink = rewrite.Discard
	}
	w := bufio.NewWriter(out)
	sc := rewrite.NewScanner(in)

	var g *group
	pass := false // inside a group that is not a file list
	changed := false
	for n := 1; sc.Scan(); n++ {
		text, eol := sc.Text(), sc.EOL()
		switch {
		case pass:
			w.WriteString(text)
			w.WriteString(eol)
			if strings.TrimSpace(text) == "</ItemGroup>" {
				pass = false
			}
		case g != nil:
			done, ok := g.line(text, eol, n, vars, sink)
			switch {
			case !ok:
				for _, l := range g.raw {
					w.WriteString(l.text)
					w.WriteString(l.eol)
				}
				g = nil
				pass = true
			case done:
				g.flush(w, text, eol)
				changed = changed || g.changed
				g = nil
			}
		default:
			if strings.TrimSpace(text) == "<ItemGroup>" {
				g = newGroup(n, text, eol)
			}
			w.WriteString(text)
			w.WriteString(eol)
		}
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	if g != nil {
		sink.Warnf("line %d: <ItemGroup> is never closed, leaving it as is", g.startLine)
		for _, l := range g.raw {
			w.WriteString(l.text)
			w.WriteString(l.eol)
		}
	}
	if err := w.Flush(); err != nil {
		return false, err
	}
	return changed, nil
}
