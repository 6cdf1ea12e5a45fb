package cli

import (
	"encoding/json"
	"fmt"
)

// DeclInfo is one generated type declaration.
type DeclInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// FuncInfo is one generated decoder function.
type FuncInfo struct {
	Name   string `json:"name"`
	Entry  string `json:"entry"`
	Result string `json:"result"`
	Shape  string `json:"shape"`
}

// Catalog is the decoded form of a program catalog.
type Catalog struct {
	Decls []DeclInfo `json:"decls"`
	Funcs []FuncInfo `json:"funcs"`
}

// parseCatalog decodes canonical catalog JSON. Cached and fresh
// compilations are reported from the same representation.
func parseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decoding catalog: %w", err)
	}
	return c, nil
}

// DeclNames returns the declaration names in emission order.
func (c Catalog) DeclNames() []string {
	names := make([]string, len(c.Decls))
	for i, d := range c.Decls {
		names[i] = d.Name
	}
	return names
}
