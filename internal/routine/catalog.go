package routine

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is an id-keyed set of routine definitions.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]DefinitionFile
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: map[string]DefinitionFile{}}
}

// Add stores file under its definition id, replacing any earlier entry.
func (c *Catalog) Add(file DefinitionFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[file.Definition.ID] = file
}

// Get returns a copy of the definition for id.
func (c *Catalog) Get(id string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	file, ok := c.entries[id]
	if !ok {
		return Definition{}, false
	}
	return file.Definition.Clone(), true
}

// Source returns where the routine was loaded from.
func (c *Catalog) Source(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].Path
}

// IDs returns the sorted routine identifiers.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of routines.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LoadCatalog collects the bundled routines, then YAML and Go routines from
// each dir in order. A project routine replaces a bundled one with the same
// id; two project files declaring the same id is an error.
func LoadCatalog(dirs ...string) (*Catalog, error) {
	catalog := NewCatalog()
	bundled, err := Bundled()
	if err != nil {
		return nil, err
	}
	for _, file := range bundled {
		catalog.Add(file)
	}
	seen := map[string]string{}
	for _, dir := range dirs {
		yamlDefs, err := LoadDefinitionDir(dir)
		if err != nil {
			return nil, err
		}
		goDefs, err := LoadGoDefinitionDir(dir)
		if err != nil {
			return nil, err
		}
		for _, file := range append(yamlDefs, goDefs...) {
			id := file.Definition.ID
			if existing, ok := seen[id]; ok {
				return nil, fmt.Errorf("routine: duplicate routine id %s (%s and %s)", id, existing, file.Path)
			}
			seen[id] = file.Path
			catalog.Add(file)
		}
	}
	return catalog, nil
}
