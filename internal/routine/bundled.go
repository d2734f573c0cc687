package routine

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed bundled/*.yaml
var bundledFS embed.FS

// Bundled returns the routines shipped inside the binary, sorted by path.
func Bundled() ([]DefinitionFile, error) {
	entries, err := fs.ReadDir(bundledFS, "bundled")
	if err != nil {
		return nil, fmt.Errorf("routine: read bundled routines: %w", err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		name := path.Join("bundled", entry.Name())
		data, err := bundledFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("routine: read %s: %w", name, err)
		}
		def, err := ParseDefinitionYAML(data)
		if err != nil {
			return nil, fmt.Errorf("routine: %s: %w", name, err)
		}
		defs = append(defs, DefinitionFile{Definition: def, Path: "embedded:" + name})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}
