// Package sqlite provides a SQLite implementation of the resolution
// report store.
//
// The database is opened in WAL mode so readers never block the
// writer. All SQL uses prepared statements, compiled once at open.
// SaveReport is the only multi-statement operation and runs inside an
// explicit transaction, so a stored report is always complete or
// absent, never partial.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/store"
)

//go:embed schema.sql
var schemaSQL string

// sqliteStore implements store.Store using SQLite.
type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger

	stmtUpsertReport  *sql.Stmt
	stmtDeleteEntries *sql.Stmt
	stmtInsertEntry   *sql.Stmt
	stmtGetReport     *sql.Stmt
	stmtGetEntries    *sql.Stmt
	stmtListReports   *sql.Stmt
}

// New creates a SQLite-backed report store at the given path.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, [][2]string{{"journal_mode", "WAL"}, {"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(ctx, db, logger)
}

// NewInMemory creates an in-memory report store for testing.
func NewInMemory(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", ":memory:")

	db, err := sql.Open(driverName, dsn(":memory:", [][2]string{{"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return open(ctx, db, logger)
}

func open(ctx context.Context, db *sql.DB, logger *slog.Logger) (store.Store, error) {
	s := &sqliteStore{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	logger.Debug("opened report database")
	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *sqliteStore) prepareStatements() error {
	var err error

	const sqlUpsertReport = `
		INSERT INTO reports (fingerprint, kernel_release, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
		  kernel_release = excluded.kernel_release,
		  created_at = excluded.created_at`
	if s.stmtUpsertReport, err = s.db.Prepare(sqlUpsertReport); err != nil {
		return fmt.Errorf("prepare UpsertReport: %w", err)
	}

	const sqlDeleteEntries = "DELETE FROM report_entries WHERE fingerprint = ?"
	if s.stmtDeleteEntries, err = s.db.Prepare(sqlDeleteEntries); err != nil {
		return fmt.Errorf("prepare DeleteEntries: %w", err)
	}

	const sqlInsertEntry = `
		INSERT INTO report_entries (fingerprint, ord, path, chain, status, step_index, field)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if s.stmtInsertEntry, err = s.db.Prepare(sqlInsertEntry); err != nil {
		return fmt.Errorf("prepare InsertEntry: %w", err)
	}

	const sqlGetReport = "SELECT kernel_release FROM reports WHERE fingerprint = ?"
	if s.stmtGetReport, err = s.db.Prepare(sqlGetReport); err != nil {
		return fmt.Errorf("prepare GetReport: %w", err)
	}

	const sqlGetEntries = `
		SELECT path, chain, status, step_index, field
		FROM report_entries
		WHERE fingerprint = ?
		ORDER BY ord`
	if s.stmtGetEntries, err = s.db.Prepare(sqlGetEntries); err != nil {
		return fmt.Errorf("prepare GetEntries: %w", err)
	}

	const sqlListReports = `
		SELECT r.fingerprint, r.kernel_release, r.created_at,
		       SUM(CASE WHEN e.status = 'resolved' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN e.status = 'field-missing' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN e.status = 'type-mismatch' THEN 1 ELSE 0 END)
		FROM reports r
		LEFT JOIN report_entries e ON r.fingerprint = e.fingerprint
		GROUP BY r.fingerprint
		ORDER BY r.created_at DESC`
	if s.stmtListReports, err = s.db.Prepare(sqlListReports); err != nil {
		return fmt.Errorf("prepare ListReports: %w", err)
	}

	return nil
}

// SaveReport implements store.Store.
func (s *sqliteStore) SaveReport(ctx context.Context, report fieldpath.Report) error {
	if report.Fingerprint == "" {
		return fmt.Errorf("report has no fingerprint")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.StmtContext(ctx, s.stmtUpsertReport).ExecContext(ctx, report.Fingerprint, report.KernelRelease, now); err != nil {
		return fmt.Errorf("save report %s: %w", report.Fingerprint, err)
	}
	if _, err := tx.StmtContext(ctx, s.stmtDeleteEntries).ExecContext(ctx, report.Fingerprint); err != nil {
		return fmt.Errorf("clear entries for %s: %w", report.Fingerprint, err)
	}
	for i, e := range report.Entries {
		if _, err := tx.StmtContext(ctx, s.stmtInsertEntry).ExecContext(ctx,
			report.Fingerprint, i, e.Path, e.Chain, e.Status.String(), e.StepIndex, e.Field); err != nil {
			return fmt.Errorf("save entry %s/%s: %w", report.Fingerprint, e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.Fingerprint, err)
	}
	s.logger.Debug("saved resolution report", "fingerprint", report.Fingerprint, "entries", len(report.Entries))
	return nil
}

// GetReport implements store.Store.
func (s *sqliteStore) GetReport(ctx context.Context, fingerprint string) (fieldpath.Report, error) {
	report := fieldpath.Report{Fingerprint: fingerprint}

	err := s.stmtGetReport.QueryRowContext(ctx, fingerprint).Scan(&report.KernelRelease)
	if err == sql.ErrNoRows {
		return fieldpath.Report{}, fmt.Errorf("fingerprint %s: %w", fingerprint, store.ErrReportNotFound)
	}
	if err != nil {
		return fieldpath.Report{}, fmt.Errorf("get report %s: %w", fingerprint, err)
	}

	rows, err := s.stmtGetEntries.QueryContext(ctx, fingerprint)
	if err != nil {
		return fieldpath.Report{}, fmt.Errorf("get entries %s: %w", fingerprint, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e fieldpath.ReportEntry
		var status string
		if err := rows.Scan(&e.Path, &e.Chain, &status, &e.StepIndex, &e.Field); err != nil {
			return fieldpath.Report{}, fmt.Errorf("scan entry: %w", err)
		}
		parsed, err := fieldpath.ParseStatus(status)
		if err != nil {
			return fieldpath.Report{}, fmt.Errorf("entry %s: %w", e.Path, err)
		}
		e.Status = parsed
		report.Entries = append(report.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return fieldpath.Report{}, fmt.Errorf("iterate entries: %w", err)
	}
	return report, nil
}

// ListReports implements store.Store.
func (s *sqliteStore) ListReports(ctx context.Context) ([]store.ReportSummary, error) {
	rows, err := s.stmtListReports.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []store.ReportSummary
	for rows.Next() {
		var sum store.ReportSummary
		var resolved, missing, mismatched sql.NullInt64
		if err := rows.Scan(&sum.Fingerprint, &sum.KernelRelease, &sum.CreatedAt, &resolved, &missing, &mismatched); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		sum.Resolved = int(resolved.Int64)
		sum.Missing = int(missing.Int64)
		sum.Mismatched = int(mismatched.Int64)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Close closes all prepared statements and the database connection.
func (s *sqliteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtUpsertReport, s.stmtDeleteEntries, s.stmtInsertEntry,
		s.stmtGetReport, s.stmtGetEntries, s.stmtListReports,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
