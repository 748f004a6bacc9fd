package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/store"
	"github.com/frobware/go-fieldpath/store/sqlite"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewInMemory(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(fingerprint string) fieldpath.Report {
	return fieldpath.Report{
		Fingerprint:   fingerprint,
		KernelRelease: "6.8.0-test",
		Entries: []fieldpath.ReportEntry{
			{
				Path:      "file_inode",
				Chain:     "file -> f_path.dentry -> d_inode -> i_ino",
				Status:    fieldpath.StatusResolved,
				StepIndex: -1,
			},
			{
				Path:      "mm_exe_file",
				Chain:     "mm_struct -> exe_file",
				Status:    fieldpath.StatusFieldMissing,
				StepIndex: 0,
				Field:     "exe_file",
			},
			{
				Path:      "cred_uid_val",
				Chain:     "cred -> uid.val",
				Status:    fieldpath.StatusTypeMismatch,
				StepIndex: 0,
				Field:     "uid.val",
			},
		},
	}
}

func TestStore_SaveAndGetReport(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	original := sampleReport("kernel:6.8.0-test")
	require.NoError(t, s.SaveReport(ctx, original))

	got, err := s.GetReport(ctx, "kernel:6.8.0-test")
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestStore_GetReportNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetReport(context.Background(), "kernel:nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrReportNotFound))
}

func TestStore_SaveReplacesPriorReport(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := sampleReport("kernel:6.8.0-test")
	require.NoError(t, s.SaveReport(ctx, first))

	// Same fingerprint, smaller entry set. The old entries must not
	// survive.
	second := fieldpath.Report{
		Fingerprint:   "kernel:6.8.0-test",
		KernelRelease: "6.8.0-test",
		Entries: []fieldpath.ReportEntry{
			{Path: "inode_i_ino", Chain: "inode -> i_ino", Status: fieldpath.StatusResolved, StepIndex: -1},
		},
	}
	require.NoError(t, s.SaveReport(ctx, second))

	got, err := s.GetReport(ctx, "kernel:6.8.0-test")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestStore_SaveRejectsEmptyFingerprint(t *testing.T) {
	s := newStore(t)
	err := s.SaveReport(context.Background(), fieldpath.Report{})
	require.Error(t, err)
}

func TestStore_ListReports(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReport(ctx, sampleReport("kernel:a")))
	require.NoError(t, s.SaveReport(ctx, sampleReport("kernel:b")))

	summaries, err := s.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byFingerprint := make(map[string]store.ReportSummary, len(summaries))
	for _, sum := range summaries {
		byFingerprint[sum.Fingerprint] = sum
	}
	require.Contains(t, byFingerprint, "kernel:a")
	require.Contains(t, byFingerprint, "kernel:b")

	sum := byFingerprint["kernel:a"]
	assert.Equal(t, "6.8.0-test", sum.KernelRelease)
	assert.Equal(t, 1, sum.Resolved)
	assert.Equal(t, 1, sum.Missing)
	assert.Equal(t, 1, sum.Mismatched)
	assert.False(t, sum.CreatedAt.IsZero())
}

func TestStore_ListReportsEmpty(t *testing.T) {
	s := newStore(t)

	summaries, err := s.ListReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := t.TempDir() + "/reports.db"

	s, err := sqlite.New(ctx, dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(ctx, sampleReport("kernel:persist")))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(ctx, dbPath, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetReport(ctx, "kernel:persist")
	require.NoError(t, err)
	assert.Len(t, got.Entries, 3)
}
