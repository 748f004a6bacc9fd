// Package store defines persistence for resolution reports, so
// operators can map accessor degradation to specific kernel versions
// over time.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/frobware/go-fieldpath"
)

// ErrReportNotFound is returned when no report exists for the
// requested snapshot fingerprint.
var ErrReportNotFound = errors.New("resolution report not found")

// ReportSummary is one stored report's header row.
type ReportSummary struct {
	Fingerprint   string    `json:"fingerprint"`
	KernelRelease string    `json:"kernel_release,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Resolved      int       `json:"resolved"`
	Missing       int       `json:"missing"`
	Mismatched    int       `json:"mismatched"`
}

// Store persists resolution reports keyed by snapshot fingerprint.
type Store interface {
	// SaveReport stores a report, replacing any prior report for the
	// same fingerprint.
	SaveReport(ctx context.Context, report fieldpath.Report) error

	// GetReport retrieves the report for a fingerprint.
	// Returns ErrReportNotFound if none exists.
	GetReport(ctx context.Context, fingerprint string) (fieldpath.Report, error)

	// ListReports returns summaries of all stored reports, newest
	// first.
	ListReports(ctx context.Context) ([]ReportSummary, error)

	// Close releases the store's resources.
	Close() error
}
