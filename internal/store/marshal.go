package store

import (
	"encoding/json"
	"fmt"
)

// boolToInt maps a bool onto SQLite's 0/1 integers.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// catalogEntry is the subset of a declaration catalog entry the cache reads.
type catalogEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// DeclNames parses the stored catalog and returns the declaration names
// in emission order.
func (c Compilation) DeclNames() ([]string, error) {
	var catalog struct {
		Decls []catalogEntry `json:"decls"`
	}
	if err := json.Unmarshal([]byte(c.Catalog), &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	names := make([]string, len(catalog.Decls))
	for i, d := range catalog.Decls {
		names[i] = d.Name
	}
	return names, nil
}
