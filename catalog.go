package fieldpath

// Accessor names for the fixed vocabulary of access paths this layer
// resolves. Names follow the probe surface they back.
const (
	TaskMM            = "task_struct_mm"
	TaskPID           = "task_struct_pid"
	TaskTGID          = "task_struct_tgid"
	MMExeFile         = "mm_exe_file"
	FileInode         = "exe_file_inode"
	FileInodeNumber   = "file_inode"
	FileParentDentry  = "file_dentry"
	DentryInodeNumber = "dentry_i_ino"
	InodeNumber       = "inode_i_ino"
	BinprmArgc        = "linux_binprm_argc"
	SockaddrFamily    = "sockaddr_sa_family"
	SockaddrInAddr    = "sockaddr_in_sin_addr_s_addr"
	SockaddrInPort    = "sockaddr_in_sin_port"
	CredUID           = "cred_uid_val"
	CredGID           = "cred_gid_val"
)

// catalog is the build-time vocabulary: every access chain the probe
// accessor library exposes. The chains are fixed; nothing in this
// layer performs arbitrary or user-driven traversal.
var catalog = []AccessPath{
	// Process identity.
	mustAccessPath(TaskMM, "task_struct",
		[]Step{{Field: "mm", Kind: KindPointer}}, ResultPointer),
	mustAccessPath(TaskPID, "task_struct",
		[]Step{{Field: "pid", Kind: KindScalar}}, ResultS32),
	mustAccessPath(TaskTGID, "task_struct",
		[]Step{{Field: "tgid", Kind: KindScalar}}, ResultS32),

	// Executable file identity.
	mustAccessPath(MMExeFile, "mm_struct",
		[]Step{{Field: "exe_file", Kind: KindPointer}}, ResultPointer),
	mustAccessPath(FileInode, "file",
		[]Step{{Field: "f_inode", Kind: KindPointer}}, ResultPointer),
	mustAccessPath(FileInodeNumber, "file",
		[]Step{
			{Field: "f_path.dentry", Kind: KindPointer},
			{Field: "d_inode", Kind: KindPointer},
			{Field: "i_ino", Kind: KindScalar},
		}, ResultU64),
	mustAccessPath(FileParentDentry, "file",
		[]Step{
			{Field: "f_path.dentry", Kind: KindPointer},
			{Field: "d_parent", Kind: KindPointer},
		}, ResultPointer),
	mustAccessPath(DentryInodeNumber, "dentry",
		[]Step{
			{Field: "d_inode", Kind: KindPointer},
			{Field: "i_ino", Kind: KindScalar},
		}, ResultU64),
	mustAccessPath(InodeNumber, "inode",
		[]Step{{Field: "i_ino", Kind: KindScalar}}, ResultU64),

	// Exec parameters.
	mustAccessPath(BinprmArgc, "linux_binprm",
		[]Step{{Field: "argc", Kind: KindScalar}}, ResultS32),

	// Socket addresses. Network-byte-order fields are read verbatim;
	// byte-order conversion is the caller's responsibility.
	mustAccessPath(SockaddrFamily, "sockaddr",
		[]Step{{Field: "sa_family", Kind: KindScalar}}, ResultU16),
	mustAccessPath(SockaddrInAddr, "sockaddr_in",
		[]Step{{Field: "sin_addr.s_addr", Kind: KindScalar}}, ResultU32),
	mustAccessPath(SockaddrInPort, "sockaddr_in",
		[]Step{{Field: "sin_port", Kind: KindScalar}}, ResultU16),

	// Credential identifiers.
	mustAccessPath(CredUID, "cred",
		[]Step{{Field: "uid.val", Kind: KindScalar}}, ResultU32),
	mustAccessPath(CredGID, "cred",
		[]Step{{Field: "gid.val", Kind: KindScalar}}, ResultU32),
}

// Catalog returns the fixed access-path vocabulary. The returned slice
// is a copy; the catalog itself is immutable.
func Catalog() []AccessPath {
	return append([]AccessPath(nil), catalog...)
}

// CatalogPath returns the catalog entry with the given accessor name.
func CatalogPath(name string) (AccessPath, bool) {
	for _, p := range catalog {
		if p.Name() == name {
			return p, true
		}
	}
	return AccessPath{}, false
}
