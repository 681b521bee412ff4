package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	appSource    = "export const App = () => <main className=\"app\"><Title /></main>;\n"
	brokenSource = "const a = (<div>;\n"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)

	err = cmd.ExecuteContext(t.Context())

	return outBuf.String(), errBuf.String(), err
}

// project lays out files under a fresh root and returns it.
func project(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "component-tagger "))
	assert.Contains(t, out, "commit:")
}

func TestRootCommand_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"bad.yaml": "logging:\n  level: loud\n"})

	_, _, err := execute(t, "", "--config", filepath.Join(root, "bad.yaml"), "inspect", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestTransform_Stdout(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"src/App.tsx": appSource})

	out, stderr, err := execute(t, "", "--root", root, "transform", filepath.Join(root, "src", "App.tsx"))
	require.NoError(t, err)

	assert.Contains(t, out, `<main data-component-class="app"`)
	assert.Contains(t, out, `data-component-path="src/App.tsx"`)
	assert.Contains(t, out, `data-component-name="Title"`)
	assert.NotContains(t, out, "sourceMappingURL")
	assert.Contains(t, stderr, "annotated 1 file(s)")
}

func TestTransform_OutDirWithMapFiles(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{
		"src/App.tsx":               appSource,
		"src/util.ts":               "export const x = 1;\n",
		"node_modules/lib/Lib.tsx":  appSource,
		"src/.cache/Hidden.tsx":     appSource,
		"src/components/Button.jsx": "export const B = () => <button />;\n",
	})
	outDir := filepath.Join(t.TempDir(), "build")

	_, _, err := execute(t, "", "--root", root, "transform", root, "--out-dir", outDir, "--map")
	require.NoError(t, err)

	code, err := os.ReadFile(filepath.Join(outDir, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Contains(t, string(code), `data-component-name="main"`)
	assert.True(t, strings.HasSuffix(string(code), "\n//# sourceMappingURL=App.tsx.map\n"))

	raw, err := os.ReadFile(filepath.Join(outDir, "src", "App.tsx.map"))
	require.NoError(t, err)

	var sm struct {
		Version  int      `json:"version"`
		Sources  []string `json:"sources"`
		Mappings string   `json:"mappings"`
	}

	require.NoError(t, json.Unmarshal(raw, &sm))
	assert.Equal(t, 3, sm.Version)
	assert.NotEmpty(t, sm.Mappings)

	assert.FileExists(t, filepath.Join(outDir, "src", "components", "Button.jsx"))
	assert.NoFileExists(t, filepath.Join(outDir, "src", "util.ts"))
	assert.NoDirExists(t, filepath.Join(outDir, "node_modules"))
	assert.NoDirExists(t, filepath.Join(outDir, "src", ".cache"))
}

func TestTransform_InlineMap(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"App.jsx": appSource})

	out, _, err := execute(t, "", "--root", root, "transform", filepath.Join(root, "App.jsx"), "--inline-map")
	require.NoError(t, err)
	assert.Contains(t, out, "\n//# sourceMappingURL=data:application/json;charset=utf-8;base64,")
}

func TestTransform_Stdin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	out, _, err := execute(t, appSource, "--root", root, "-q", "transform", "--stdin-path", "src/App.tsx")
	require.NoError(t, err)
	assert.Contains(t, out, `data-component-path="src/App.tsx"`)
	assert.Contains(t, out, `data-component-file="App.tsx"`)
}

func TestTransform_StdinIneligiblePassesThrough(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	out, _, err := execute(t, appSource, "--root", root, "transform", "--stdin-path", "src/App.js")
	require.NoError(t, err)
	assert.Equal(t, appSource, out)
}

func TestTransform_ParseFailurePassesThrough(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"Broken.tsx": brokenSource})

	out, stderr, err := execute(t, "", "--root", root, "transform", filepath.Join(root, "Broken.tsx"))
	require.NoError(t, err)
	assert.Equal(t, brokenSource, out)
	assert.Contains(t, stderr, "error processing file")
	assert.Contains(t, stderr, "Broken.tsx")
	assert.Contains(t, stderr, "passed through after parse errors")
}

func TestTransform_FlagErrors(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"App.tsx": appSource})
	file := filepath.Join(root, "App.tsx")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"map without out dir", []string{"transform", file, "--map"}, ErrMapNeedsOutDir},
		{"map modes conflict", []string{"transform", file, "--map", "--inline-map", "-o", root}, ErrMapModeConflict},
		{"no input", []string{"transform"}, ErrNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, "", append([]string{"--root", root}, tt.args...)...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransform_ExcludeFlag(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"App.tsx": appSource})

	out, _, err := execute(t, "", "--root", root, "--exclude", "Title", "transform", filepath.Join(root, "App.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, `data-component-name="main"`)
	assert.Contains(t, out, "<Title />")
}

func TestTransform_LegacyMarkersFlag(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"App.tsx": appSource})

	out, _, err := execute(t, "", "--root", root, "--legacy-markers", "transform", filepath.Join(root, "App.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, `data-component-line="1"`)
	assert.Contains(t, out, "data-component-index=")
}

func TestDiff(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{
		"src/App.tsx":   appSource,
		"src/Plain.tsx": "export const n = 1;\n",
	})

	out, _, err := execute(t, "", "--root", root, "diff", root)
	require.NoError(t, err)

	assert.Contains(t, out, "--- a/src/App.tsx\n+++ b/src/App.tsx\n")
	assert.Contains(t, out, "-"+strings.TrimSuffix(appSource, "\n")+"\n")
	assert.Contains(t, out, "+export const App = () => <main data-component-class=")
	assert.NotContains(t, out, "Plain.tsx")
}

func TestInspect_Formats(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{
		"App.tsx":    appSource,
		"Broken.tsx": brokenSource,
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		out, _, err := execute(t, "", "--root", root, "inspect", root, "-f", "json")
		require.NoError(t, err)

		var reports []fileRecords

		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 2)

		byPath := map[string]fileRecords{}
		for _, r := range reports {
			byPath[r.Path] = r
		}

		app := byPath["App.tsx"]
		require.Len(t, app.Records, 2)
		assert.Equal(t, "main", app.Records[0].Name)
		assert.Equal(t, "Title", app.Records[1].Name)
		require.NotNil(t, app.Records[0].Class)
		assert.Equal(t, "app", *app.Records[0].Class)
		assert.Equal(t, len(appSource), app.Size)

		broken := byPath["Broken.tsx"]
		assert.NotEmpty(t, broken.Error)
		assert.Empty(t, broken.Records)
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		out, _, err := execute(t, "", "--root", root, "inspect", filepath.Join(root, "App.tsx"), "-f", "yaml")
		require.NoError(t, err)

		var reports []map[string]any

		require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 1)
		assert.Equal(t, "App.tsx", reports[0]["path"])
	})

	t.Run("table", func(t *testing.T) {
		t.Parallel()

		out, _, err := execute(t, "", "--root", root, "inspect", root)
		require.NoError(t, err)
		assert.Contains(t, out, "Title")
		assert.Contains(t, out, "parse error")
		assert.Contains(t, out, "TOTAL: 2 TAGS")
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "", "--root", root, "inspect", root, "-f", "xml")
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestWatch_RequiresOutDir(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "", "watch", t.TempDir())
	require.ErrorIs(t, err, ErrOutDirRequired)
}
