package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// IndexFile is the name of the summary written next to the series files.
const IndexFile = "index.json"

// IndexEntry summarises one published series.
type IndexEntry struct {
	Symbol     string `json:"ticker"`
	Name       string `json:"name"`
	DataPoints int    `json:"dataPoints"`
}

// LoadIndex loads {dir}/index.json.
func LoadIndex(dir string) ([]IndexEntry, error) {
	raw, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	return entries, nil
}

// SaveIndex writes {dir}/index.json, sorted by symbol.
func SaveIndex(dir string, entries []IndexEntry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	sorted := append([]IndexEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })
	raw, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, IndexFile), raw, 0644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// GetDefaultPriceDir returns the default directory for published series.
func GetDefaultPriceDir() string {
	if dir := os.Getenv("PRICE_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data/prices"
}
