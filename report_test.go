package fieldpath_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/layout"
)

func mixedReport(t *testing.T) fieldpath.Report {
	t.Helper()
	paths := fieldpath.Catalog()
	// Only the inode chain resolves; cred.uid.val has the wrong kind.
	snap := layout.NewTable().
		AddType("inode", 32).
		AddType("cred", 24).
		AddField("inode", "i_ino", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindScalar}).
		AddField("cred", "uid.val", fieldpath.Field{Offset: 4, Size: 4, Kind: fieldpath.KindPointer, TypeName: "kuid_t"})

	plans := fieldpath.ResolveAll(paths, snap)
	return fieldpath.NewReport(snap.Fingerprint(), "6.8.0-test", paths, plans)
}

func TestReport_Degraded(t *testing.T) {
	report := mixedReport(t)

	require.Len(t, report.Entries, 15)
	degraded := report.Degraded()
	assert.Len(t, degraded, 14)
	for _, e := range degraded {
		assert.NotEqual(t, fieldpath.StatusResolved, e.Status)
		assert.NotEmpty(t, e.Chain)
	}
	assert.True(t, report.Mismatched())
}

func TestReport_EntriesCarryChainText(t *testing.T) {
	report := mixedReport(t)

	var inode *fieldpath.ReportEntry
	for i := range report.Entries {
		if report.Entries[i].Path == fieldpath.InodeNumber {
			inode = &report.Entries[i]
		}
	}
	require.NotNil(t, inode)
	assert.Equal(t, fieldpath.StatusResolved, inode.Status)
	assert.Equal(t, "inode -> i_ino", inode.Chain)
	assert.Equal(t, -1, inode.StepIndex)
}

func TestReport_JSON(t *testing.T) {
	report := mixedReport(t)

	text, err := report.JSON()
	require.NoError(t, err)

	var decoded fieldpath.Report
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Equal(t, report, decoded)
}

func TestReport_String(t *testing.T) {
	report := mixedReport(t)

	text := report.String()
	assert.Contains(t, text, report.Fingerprint)
	assert.Contains(t, text, "kernel 6.8.0-test")
	assert.Contains(t, text, fieldpath.InodeNumber)
	assert.Contains(t, text, "type-mismatch")
}

func TestStatus_Strings(t *testing.T) {
	assert.Equal(t, "resolved", fieldpath.StatusResolved.String())
	assert.Equal(t, "field-missing", fieldpath.StatusFieldMissing.String())
	assert.Equal(t, "type-mismatch", fieldpath.StatusTypeMismatch.String())

	s, err := fieldpath.ParseStatus("field-missing")
	require.NoError(t, err)
	assert.Equal(t, fieldpath.StatusFieldMissing, s)

	_, err = fieldpath.ParseStatus("unknown")
	require.Error(t, err)
}
