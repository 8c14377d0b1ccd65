package rewrite

import "testing"

func TestExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"file.cpp", ".cpp"},
		{"file.o", ".o"},
		{"file", ""},
		{"dir/file.c", ".c"},
		{"dir.d/file", ""},
		{"dir.d/file.h", ".h"},
		{`msw\file.cpp`, ".cpp"},
		{`dir.d\file`, ""},
		{"archive.tar.gz", ".gz"},
		{".hidden", ".hidden"},
		{"file.", "."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Ext(tt.name); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSwapExt(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{"file.cpp", ".o", "file.o"},
		{"file.o", ".cpp", "file.cpp"},
		{"file.o", ".o", "file.o"},
		{"file", ".obj", "file.obj"},
		{"dir/file.c", ".o", "dir/file.o"},
		{"dir.d/file", ".o", "dir.d/file.o"},
		{"archive.tar.gz", ".bz2", "archive.tar.bz2"},
	}

	for _, tt := range tests {
		if got := SwapExt(tt.name, tt.ext); got != tt.want {
			t.Errorf("SwapExt(%q, %q) = %q, want %q", tt.name, tt.ext, got, tt.want)
		}
	}
}
