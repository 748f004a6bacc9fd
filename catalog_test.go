package fieldpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-fieldpath"
)

func TestCatalog_Vocabulary(t *testing.T) {
	paths := fieldpath.Catalog()
	require.Len(t, paths, 15)

	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p.Name()], "duplicate accessor name %s", p.Name())
		seen[p.Name()] = true

		steps := p.Steps()
		require.NotEmpty(t, steps)
		final := steps[len(steps)-1]
		assert.Contains(t, []fieldpath.Kind{fieldpath.KindScalar, fieldpath.KindPointer}, final.Kind,
			"%s must end in a scalar or pointer", p.Name())
	}
}

func TestCatalog_KnownChains(t *testing.T) {
	tests := []struct {
		name     string
		rootType string
		chain    string
	}{
		{fieldpath.TaskMM, "task_struct", "task_struct -> mm"},
		{fieldpath.TaskPID, "task_struct", "task_struct -> pid"},
		{fieldpath.TaskTGID, "task_struct", "task_struct -> tgid"},
		{fieldpath.MMExeFile, "mm_struct", "mm_struct -> exe_file"},
		{fieldpath.FileInode, "file", "file -> f_inode"},
		{fieldpath.FileInodeNumber, "file", "file -> f_path.dentry -> d_inode -> i_ino"},
		{fieldpath.FileParentDentry, "file", "file -> f_path.dentry -> d_parent"},
		{fieldpath.DentryInodeNumber, "dentry", "dentry -> d_inode -> i_ino"},
		{fieldpath.InodeNumber, "inode", "inode -> i_ino"},
		{fieldpath.BinprmArgc, "linux_binprm", "linux_binprm -> argc"},
		{fieldpath.SockaddrFamily, "sockaddr", "sockaddr -> sa_family"},
		{fieldpath.SockaddrInAddr, "sockaddr_in", "sockaddr_in -> sin_addr.s_addr"},
		{fieldpath.SockaddrInPort, "sockaddr_in", "sockaddr_in -> sin_port"},
		{fieldpath.CredUID, "cred", "cred -> uid.val"},
		{fieldpath.CredGID, "cred", "cred -> gid.val"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := fieldpath.CatalogPath(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.rootType, path.RootType())
			assert.Equal(t, tt.chain, path.String())
		})
	}
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	a := fieldpath.Catalog()
	b := fieldpath.Catalog()
	a[0] = fieldpath.AccessPath{}
	assert.NotEqual(t, a[0], b[0])
}

func TestCatalogPath_Unknown(t *testing.T) {
	_, ok := fieldpath.CatalogPath("no_such_accessor")
	assert.False(t, ok)
}
