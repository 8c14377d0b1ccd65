package msbuild

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mksync/mksync/pkgs/rewrite"
)

type recordingSink struct {
	warnings []string
}

func (s *recordingSink) Warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

func runUpdate(t *testing.T, input string, vars rewrite.Vars) (string, bool, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	var out strings.Builder
	changed, err := Update(strings.NewReader(input), &out, vars, sink)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	return out.String(), changed, sink
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name        string
		vars        rewrite.Vars
		input       string
		want        string
		wantChanged bool
	}{
		{
			name: "sorted group stays sorted after add and drop",
			vars: rewrite.Vars{"sources": {"src/first.cpp", "src/second.cpp", "src/new.cpp"}},
			input: "<Project>\n" +
				"  <ItemGroup>\n" +
				`    <ClCompile Include="src\first.cpp" />` + "\n" +
				`    <ClCompile Include="src\second.cpp" />` + "\n" +
				`    <ClCompile Include="src\old.cpp" />` + "\n" +
				"  </ItemGroup>\n" +
				"</Project>\n",
			want: "<Project>\n" +
				"  <ItemGroup>\n" +
				`    <ClCompile Include="src\first.cpp" />` + "\n" +
				`    <ClCompile Include="src\new.cpp" />` + "\n" +
				`    <ClCompile Include="src\second.cpp" />` + "\n" +
				"  </ItemGroup>\n" +
				"</Project>\n",
			wantChanged: true,
		},
		{
			name: "paired entry keeps children and stale one is dropped whole",
			vars: rewrite.Vars{"sources": {"a.cpp", "b.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp">` + "\n" +
				"    <PrecompiledHeader>Create</PrecompiledHeader>\n" +
				"  </ClCompile>\n" +
				`  <ClCompile Include="gone.cpp">` + "\n" +
				"    <ExcludedFromBuild>true</ExcludedFromBuild>\n" +
				"  </ClCompile>\n" +
				`  <ClCompile Include="b.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp">` + "\n" +
				"    <PrecompiledHeader>Create</PrecompiledHeader>\n" +
				"  </ClCompile>\n" +
				`  <ClCompile Include="b.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: true,
		},
		{
			name: "header group synced against its own list",
			vars: rewrite.Vars{"sources": {"main.cpp"}, "headers": {"inc/api.h", "inc/new.h"}},
			input: "<ItemGroup>\n" +
				`  <ClInclude Include="inc\api.h" />` + "\n" +
				"</ItemGroup>\n" +
				"<ItemGroup>\n" +
				`  <ClCompile Include="main.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				`  <ClInclude Include="inc\api.h" />` + "\n" +
				`  <ClInclude Include="inc\new.h" />` + "\n" +
				"</ItemGroup>\n" +
				"<ItemGroup>\n" +
				`  <ClCompile Include="main.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: true,
		},
		{
			name: "forward slash style mirrored for new entries",
			vars: rewrite.Vars{"sources": {"src/x.cpp", "src/y.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="src/x.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				`  <ClCompile Include="src/x.cpp" />` + "\n" +
				`  <ClCompile Include="src/y.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: true,
		},
		{
			name: "attributed and unrecognized groups pass through",
			vars: rewrite.Vars{"sources": {"a.cpp"}},
			input: `<ItemGroup Label="ProjectConfigurations">` + "\n" +
				`  <ProjectConfiguration Include="Debug|Win32" />` + "\n" +
				"</ItemGroup>\n" +
				"<ItemGroup>\n" +
				`  <None Include="readme.txt" />` + "\n" +
				"</ItemGroup>\n",
			want: `<ItemGroup Label="ProjectConfigurations">` + "\n" +
				`  <ProjectConfiguration Include="Debug|Win32" />` + "\n" +
				"</ItemGroup>\n" +
				"<ItemGroup>\n" +
				`  <None Include="readme.txt" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: false,
		},
		{
			name: "group without an authoritative list passes through",
			vars: rewrite.Vars{"headers": {"a.h"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="main.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				`  <ClCompile Include="main.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: false,
		},
		{
			name: "unsorted group grows at the end",
			vars: rewrite.Vars{"sources": {"z.cpp", "a.cpp", "m.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="z.cpp" />` + "\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				`  <ClCompile Include="z.cpp" />` + "\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				`  <ClCompile Include="m.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: true,
		},
		{
			name: "comment keeps the group order untouched",
			vars: rewrite.Vars{"sources": {"a.cpp", "b.cpp"}},
			input: "<ItemGroup>\n" +
				"  <!-- generated -->\n" +
				`  <ClCompile Include="b.cpp" />` + "\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				`  <ClCompile Include="stale.cpp" />` + "\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				"  <!-- generated -->\n" +
				`  <ClCompile Include="b.cpp" />` + "\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantChanged: true,
		},
		{
			name: "unterminated group left untouched",
			vars: rewrite.Vars{"sources": {"a.cpp", "b.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp" />`,
			want: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp" />`,
			wantChanged: false,
		},
		{
			name: "crlf endings preserved",
			vars: rewrite.Vars{"sources": {"a.cpp", "b.cpp"}},
			input: "<ItemGroup>\r\n" +
				`  <ClCompile Include="a.cpp" />` + "\r\n" +
				"</ItemGroup>\r\n",
			want: "<ItemGroup>\r\n" +
				`  <ClCompile Include="a.cpp" />` + "\r\n" +
				`  <ClCompile Include="b.cpp" />` + "\r\n" +
				"</ItemGroup>\r\n",
			wantChanged: true,
		},
		{
			name: "empty group passes through",
			vars: rewrite.Vars{"sources": {"a.cpp"}},
			input: "<ItemGroup>\n" +
				"</ItemGroup>\n",
			want: "<ItemGroup>\n" +
				"</ItemGroup>\n",
			wantChanged: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, _ := runUpdate(t, tt.input, tt.vars)
			if got != tt.want {
				t.Errorf("Update() output = %q, want %q", got, tt.want)
			}
			if changed != tt.wantChanged {
				t.Errorf("Update() changed = %v, want %v", changed, tt.wantChanged)
			}

			// Running the result through again must be a no-op.
			again, changedAgain, _ := runUpdate(t, got, tt.vars)
			if again != got {
				t.Errorf("Update() not idempotent: %q became %q", got, again)
			}
			if changedAgain {
				t.Errorf("Update() reported a change on its own output")
			}
		})
	}
}

func TestUpdateWarnings(t *testing.T) {
	tests := []struct {
		name        string
		vars        rewrite.Vars
		input       string
		wantWarning string
	}{
		{
			name: "duplicate file",
			vars: rewrite.Vars{"sources": {"a.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				"</ItemGroup>\n",
			wantWarning: "duplicate file a.cpp",
		},
		{
			name: "mixed element kinds",
			vars: rewrite.Vars{"sources": {"a.cpp"}, "headers": {"h.h"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp" />` + "\n" +
				`  <ClInclude Include="h.h" />` + "\n" +
				"</ItemGroup>\n",
			wantWarning: "unexpected <ClInclude>",
		},
		{
			name: "group never closed",
			vars: rewrite.Vars{"sources": {"a.cpp"}},
			input: "<ItemGroup>\n" +
				`  <ClCompile Include="a.cpp" />` + "\n",
			wantWarning: "never closed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, sink := runUpdate(t, tt.input, tt.vars)
			found := false
			for _, w := range sink.warnings {
				if strings.Contains(w, tt.wantWarning) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Update() warnings = %v, want one containing %q", sink.warnings, tt.wantWarning)
			}
		})
	}
}
