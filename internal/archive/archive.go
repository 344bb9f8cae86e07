// Package archive keeps generated reports so they can be fetched by ID later.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/models"
)

// ErrNotFound is returned when no report exists under an ID
var ErrNotFound = errors.New("report not found")

// ReportArchive stores and retrieves reports
type ReportArchive interface {
	Put(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, reportID string) (*models.Report, error)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateID rejects IDs that could escape the archive's namespace
func ValidateID(reportID string) error {
	if !validID.MatchString(reportID) {
		return fmt.Errorf("invalid report id: %q", reportID)
	}
	return nil
}

// New creates a ReportArchive based on configuration
func New(ctx context.Context, cfg config.ArchiveConfig) (ReportArchive, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileArchive(cfg.Dir)
	case "s3":
		return NewS3Archive(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s (supported: file, s3)", cfg.Type)
	}
}

func marshalReport(report *models.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}
	return data, nil
}

func unmarshalReport(data []byte) (*models.Report, error) {
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
