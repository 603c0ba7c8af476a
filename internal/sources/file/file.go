// Package file loads the dataset from a CSV or XLSX export on disk.
package file

import (
	"context"
	"path/filepath"
	"strings"

	"ecomdash/internal/dataset"
)

type Source struct {
	Path  string
	Sheet string // xlsx worksheet; first sheet when empty
}

func New(path, sheet string) *Source {
	return &Source{Path: path, Sheet: sheet}
}

func (s *Source) Name() string { return "file:" + filepath.Base(s.Path) }

func (s *Source) Load(_ context.Context) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return dataset.LoadXLSX(s.Path, s.Sheet)
	default:
		return dataset.LoadFile(s.Path)
	}
}
