package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/statlens/statlens/internal/models"
)

// FileArchive writes each report as <dir>/<id>.json
type FileArchive struct {
	dir string
}

// NewFileArchive creates the directory if needed
func NewFileArchive(dir string) (*FileArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}
	return &FileArchive{dir: dir}, nil
}

func (a *FileArchive) path(reportID string) string {
	return filepath.Join(a.dir, reportID+".json")
}

// Put writes the report atomically through a temp file and rename
func (a *FileArchive) Put(_ context.Context, report *models.Report) error {
	if err := ValidateID(report.ID); err != nil {
		return err
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.dir, report.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write report %s: %w", report.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report %s: %w", report.ID, err)
	}

	if err := os.Rename(tmp.Name(), a.path(report.ID)); err != nil {
		return fmt.Errorf("failed to store report %s: %w", report.ID, err)
	}
	return nil
}

// Get reads a report by ID
func (a *FileArchive) Get(_ context.Context, reportID string) (*models.Report, error) {
	if err := ValidateID(reportID); err != nil {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(a.path(reportID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report %s: %w", reportID, err)
	}
	return unmarshalReport(data)
}
