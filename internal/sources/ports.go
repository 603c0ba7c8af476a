// Package sources defines where the base table comes from. Every adapter
// ends in the dataset loader, so validation is identical across backends.
package sources

import (
	"context"
	"fmt"

	"ecomdash/internal/dataset"
)

// Ports for inbound data adapters.
type (
	// Source yields a freshly loaded base table.
	Source interface {
		Name() string
		Load(ctx context.Context) (*dataset.Table, error)
	}

	// RecordReader yields the raw dataset: a header row followed by data rows.
	RecordReader interface {
		Records(ctx context.Context) ([][]string, error)
	}
)

// FromReader adapts a RecordReader into a Source.
func FromReader(name string, r RecordReader) Source {
	return &readerSource{name: name, r: r}
}

type readerSource struct {
	name string
	r    RecordReader
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Load(ctx context.Context) (*dataset.Table, error) {
	records, err := s.r.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", s.name, err)
	}
	return dataset.FromRecords(records)
}
