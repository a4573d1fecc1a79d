// Package config implements the kernel's layered configuration: TOML
// file(s), then MYCELIA__-prefixed environment variables, then CLI flags,
// merged into the generic map[string]any tree a Subsystem's WithCtx wraps
// under "config" (SPEC_FULL.md §4.12). Grounded on the teacher's
// internal/util/config.go three-layer precedence, generalized from one
// global store into a dotted-key tree the Builder deep-merges per kind.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mycelia/kernel/internal/util"
)

// Load resolves the layered configuration for a kernel instance: TOML
// file(s) under slugHome/rootPath (lowest precedence), MYCELIA__ environment
// variables, then CLI argv (highest precedence). defaultKind namespaces any
// CLI flag with no dot in its name, mirroring the teacher's mainModule sugar.
func Load(rootPath, slugHome, defaultKind string, argv []string) map[string]any {
	tree := make(map[string]any)

	for _, path := range searchPaths(rootPath, slugHome) {
		var data map[string]any
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, &data); err != nil {
			continue
		}
		mergeDotted(tree, data, "")
	}

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "MYCELIA__") {
			continue
		}
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimPrefix(pair[0], "MYCELIA__")
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		setDotted(tree, key, pair[1])
	}

	options, _ := util.ParseArgs(argv)
	for key, value := range options {
		resolvedKey := key
		if !strings.Contains(key, ".") && defaultKind != "" {
			resolvedKey = defaultKind + "." + key
		}
		setDotted(tree, resolvedKey, value)
	}

	return tree
}

func searchPaths(rootPath, slugHome string) []string {
	var paths []string
	if slugHome != "" {
		paths = append(paths, filepath.Join(slugHome, "kernel.toml"))
	}
	if rootPath != "" {
		paths = append(paths, filepath.Join(rootPath, "kernel.toml"))
	}
	return paths
}

// mergeDotted flattens src's nested maps into dotted keys under dst, the
// same flattening shape as the teacher's mergeMaps.
func mergeDotted(dst map[string]any, src map[string]any, prefix string) {
	for k, v := range src {
		fullKey := k
		if prefix != "" {
			fullKey = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			mergeDotted(dst, sub, fullKey)
			continue
		}
		setDotted(dst, fullKey, v)
	}
}

// setDotted writes value at the nested path key names (e.g.
// "storage.backend" -> tree["storage"]["backend"]), building intermediate
// maps as needed so the result merges cleanly under Subsystem.WithCtx.
func setDotted(tree map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	node := tree
	for i, part := range parts {
		if i == len(parts)-1 {
			node[part] = value
			return
		}
		next, ok := node[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}
}
