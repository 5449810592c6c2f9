package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// FileSource reads {Dir}/{symbol}.json, the same files the HTTP source serves.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource { return &FileSource{Dir: dir} }

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Symbol: symbol, Err: err}
	}
	if symbol == "" || filepath.Base(symbol) != symbol {
		return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("invalid symbol %q", symbol)}
	}
	raw, err := os.ReadFile(filepath.Join(s.Dir, symbol+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("no data file: %w", err)}
		}
		return nil, &LoadError{Symbol: symbol, Err: err}
	}
	var series model.PriceSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("decode: %w", err)}
	}
	return finish(symbol, &series)
}

// SaveSeries writes a series in the published file format.
func SaveSeries(dir string, series *model.PriceSeries) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	path := filepath.Join(dir, series.Symbol+".json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
