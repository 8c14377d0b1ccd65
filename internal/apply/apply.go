// Package apply runs a rewriter against a build file on disk and takes
// care of reporting and safe replacement.
package apply

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/qiniu/x/log"

	"github.com/mksync/mksync/pkgs/rewrite"
	"github.com/mksync/mksync/pkgs/rewrite/bakefile"
	"github.com/mksync/mksync/pkgs/rewrite/makefile"
	"github.com/mksync/mksync/pkgs/rewrite/msbuild"
)

// Format selects the rewriter dialect for a build file.
type Format string

const (
	Auto      Format = "auto"
	Makefile  Format = "makefile"
	Bakefile0 Format = "bakefile0"
	MSBuild   Format = "msbuild"
)

// Detect guesses the dialect of a build file from its extension.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bkl":
		return Bakefile0
	case ".vcxproj", ".vcxitems", ".csproj", ".proj", ".props", ".targets":
		return MSBuild
	default:
		return Makefile
	}
}

// UpdaterFor returns the rewriter implementing the given dialect.
func UpdaterFor(f Format) (rewrite.UpdateFunc, error) {
	switch f {
	case Makefile:
		return makefile.Update, nil
	case Bakefile0:
		return bakefile.Update, nil
	case MSBuild:
		return msbuild.Update, nil
	}
	return nil, fmt.Errorf("unknown build file format %q", f)
}

// Resolve returns the rewriter for path, detecting the dialect when f is
// Auto or empty.
func Resolve(f Format, path string) (rewrite.UpdateFunc, error) {
	if f == "" || f == Auto {
		f = Detect(path)
	}
	return UpdaterFor(f)
}

// Options controls how File applies a rewrite.
type Options struct {
	DryRun  bool // report only, never write the target
	Diff    bool // render a unified diff to DiffOut instead of writing
	DiffOut io.Writer
	Sink    rewrite.Sink // warning sink, PathSink(path) when nil
}

// PathSink returns a warning sink logging through the default logger with
// every message prefixed by the file path.
func PathSink(path string) rewrite.Sink {
	return rewrite.SinkFunc(func(format string, args ...any) {
		log.Warnf("%s: %s", path, fmt.Sprintf(format, args...))
	})
}

// File applies update to the build file at path and reports whether its
// contents changed. The target is only replaced when something changed
// and neither DryRun nor Diff is set; the replacement is atomic, keeps
// the original file mode and never happens on a rewriter error.
func File(path string, update rewrite.UpdateFunc, vars rewrite.Vars, opts Options) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sink := opts.Sink
	if sink == nil {
		sink = PathSink(path)
	}
	var buf bytes.Buffer
	changed, err := update(bytes.NewReader(data), &buf, vars, sink)
	if err != nil {
		return false, fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	if !changed {
		return false, nil
	}

	if opts.Diff {
		if err := writeDiff(opts.DiffOut, path, data, buf.Bytes()); err != nil {
			return false, err
		}
	}
	if opts.DryRun || opts.Diff {
		return true, nil
	}
	if err := replace(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// replace writes data to a temporary file next to path and renames it
// over the original, so readers never observe a half-written target.
func replace(path string, data []byte, mode os.FileMode) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode of %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeDiff(out io.Writer, path string, before, after []byte) error {
	if out == nil {
		out = os.Stdout
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path + " (updated)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to compute diff for %s: %w", path, err)
	}
	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("failed to write diff for %s: %w", path, err)
	}
	return nil
}
