package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kernel.toml"), []byte(body), 0o644))
}

func TestLoadMergesFileThenEnvThenCLI(t *testing.T) {
	dir := t.TempDir()
	writeTOML(t, dir, "[storage]\nbackend = \"sqlite\"\n\n[ms]\ndebug = false\n")

	t.Setenv("MYCELIA__STORAGE__BACKEND", "mysql")

	tree := Load(dir, "", "demo", []string{"--ms.debug", "true"})

	storage, ok := tree["storage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mysql", storage["backend"], "env overrides file")

	ms, ok := tree["ms"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "true", ms["debug"], "CLI overrides both file and env")
}

func TestLoadWithoutFileOrEnvUsesCLIOnly(t *testing.T) {
	dir := t.TempDir()

	tree := Load(dir, "", "demo", []string{"--port", "9000"})

	demo, ok := tree["demo"].(map[string]any)
	require.True(t, ok, "a non-dotted CLI flag is namespaced under defaultKind")
	assert.Equal(t, "9000", demo["port"])
}

func TestSetDottedBuildsNestedMaps(t *testing.T) {
	tree := make(map[string]any)
	setDotted(tree, "a.b.c", "v")

	a, ok := tree["a"].(map[string]any)
	require.True(t, ok)
	b, ok := a["b"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", b["c"])
}

func TestMergeDottedFlattensNestedSource(t *testing.T) {
	dst := make(map[string]any)
	src := map[string]any{
		"storage": map[string]any{
			"backend": "postgres",
			"options": map[string]any{"dsn": "postgres://x"},
		},
	}
	mergeDotted(dst, src, "")

	storage, ok := dst["storage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "postgres", storage["backend"])
	options, ok := storage["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "postgres://x", options["dsn"])
}

func TestSearchPathsPrefersSlugHomeFirst(t *testing.T) {
	paths := searchPaths("/root", "/home")
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join("/home", "kernel.toml"), paths[0])
	assert.Equal(t, filepath.Join("/root", "kernel.toml"), paths[1])
}
