package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LocationResolver looks up where a dbt model was materialized.
type LocationResolver interface {
	Location(model string) (database, schema string, ok bool)
}

// Manifest resolves model locations from a compiled dbt manifest.json.
type Manifest struct {
	locations map[string]location
}

type location struct {
	database string
	schema   string
}

type manifestFile struct {
	Nodes map[string]struct {
		Name         string `json:"name"`
		Alias        string `json:"alias"`
		ResourceType string `json:"resource_type"`
		Database     string `json:"database"`
		Schema       string `json:"schema"`
	} `json:"nodes"`
}

// LoadManifest reads a dbt manifest.json.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes manifest.json content. Only model nodes are kept.
func ParseManifest(data []byte) (*Manifest, error) {
	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m := &Manifest{locations: make(map[string]location)}
	for _, node := range mf.Nodes {
		if node.ResourceType != "model" || node.Name == "" {
			continue
		}
		m.locations[strings.ToLower(node.Name)] = location{
			database: strings.ToUpper(node.Database),
			schema:   strings.ToUpper(node.Schema),
		}
	}
	return m, nil
}

// Location returns the upper-cased database and schema of a model.
func (m *Manifest) Location(model string) (string, string, bool) {
	if m == nil {
		return "", "", false
	}
	loc, ok := m.locations[strings.ToLower(model)]
	return loc.database, loc.schema, ok
}

// Len returns the number of models in the manifest.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.locations)
}
