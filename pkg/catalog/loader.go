package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const loaderLogPrefix = "catalog:loader"

//go:embed default.yaml
var defaultManifest []byte

// ParseManifest decodes a YAML or JSON manifest. Unknown fields are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%s - failed to parse manifest: %w", loaderLogPrefix, err)
	}
	return &m, nil
}

// ReadManifest reads and parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", loaderLogPrefix, path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s - %s: %w", loaderLogPrefix, path, err)
	}
	return m, nil
}

// LoadManifest loads the first readable manifest among paths, then
// ENGINE_CATALOG_FILE, then config/catalog.yaml and catalog.yaml. The builtin
// manifest is merged underneath whatever is found.
func LoadManifest(paths ...string) (*Manifest, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("ENGINE_CATALOG_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/catalog.yaml", "catalog.yaml")

	base := DefaultManifest()
	for _, p := range all {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		m, err := ReadManifest(p)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - %v", loaderLogPrefix, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded catalog %s from %s", loaderLogPrefix, m.Name, p))
		return MergeManifests(base, m), nil
	}

	slog.Info(fmt.Sprintf("%s - Using builtin catalog", loaderLogPrefix))
	return base, nil
}

// DefaultManifest returns the embedded builtin manifest.
func DefaultManifest() *Manifest {
	m, err := ParseManifest(defaultManifest)
	if err != nil {
		panic(err)
	}
	return m
}

// MergeManifests returns base with override applied: operations are appended,
// shapes and policies replace those of the same name, grants merge per role and type.
func MergeManifests(base, override *Manifest) *Manifest {
	merged := *base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Requires != "" {
		merged.Requires = override.Requires
	}

	merged.Operations = append(append([]OperationSpec(nil), base.Operations...), override.Operations...)

	merged.Shapes = make(map[string]ShapeSpec, len(base.Shapes)+len(override.Shapes))
	for k, v := range base.Shapes {
		merged.Shapes[k] = v
	}
	for k, v := range override.Shapes {
		merged.Shapes[k] = v
	}

	merged.Policies = nil
	index := make(map[string]int)
	for _, p := range append(append([]PolicySpec(nil), base.Policies...), override.Policies...) {
		if i, ok := index[p.Name]; ok {
			merged.Policies[i] = p
			continue
		}
		index[p.Name] = len(merged.Policies)
		merged.Policies = append(merged.Policies, p)
	}

	merged.Grants = GrantsSpec{
		Permissions: mergeLists(base.Grants.Permissions, override.Grants.Permissions),
		Visibility:  mergeLists(base.Grants.Visibility, override.Grants.Visibility),
	}
	return &merged
}

func mergeLists(base, override map[string][]string) map[string][]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string][]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
