package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Dataset is a named site whose data files live on the server.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	TimeZone    float64   `json:"time_zone"`
	Files       SiteFiles `json:"files"`
}

// Catalog lists the datasets available to the API server.
type Catalog struct {
	UpdatedAt string    `json:"updated_at"` // ISO 8601 timestamp
	Datasets  []Dataset `json:"datasets"`

	dir string
}

// LoadCatalog loads a catalog from a JSON file. Relative data paths are
// resolved against the catalog's directory.
func LoadCatalog(filePath string) (*Catalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	c.dir = filepath.Dir(filePath)
	return &c, nil
}

// SaveCatalog writes the catalog as indented JSON, sorted by dataset ID.
func SaveCatalog(c *Catalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	sort.Slice(c.Datasets, func(i, j int) bool { return c.Datasets[i].ID < c.Datasets[j].ID })

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Find returns the dataset with the given ID, its file paths resolved.
func (c *Catalog) Find(id string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.ID == id {
			d.Files = d.Files.Resolve(c.dir)
			return d, true
		}
	}
	return Dataset{}, false
}

// GetDefaultCatalogPath returns the catalog path from HPP_CATALOG_FILE, or
// data/catalog.json.
func GetDefaultCatalogPath() string {
	if path := os.Getenv("HPP_CATALOG_FILE"); path != "" {
		return path
	}
	return "./data/catalog.json"
}
