package fieldpath

import "fmt"

// SnapshotSkewError is returned when a plan is applied against a
// different layout snapshot than the one it was resolved from.
// Offsets computed from a stale snapshot must never be patched in;
// this is always fatal for the load.
type SnapshotSkewError struct {
	Path                string
	PlanFingerprint     string
	SnapshotFingerprint string
}

func (e SnapshotSkewError) Error() string {
	return fmt.Sprintf("plan %s was resolved against snapshot %s, cannot apply against snapshot %s",
		e.Path, e.PlanFingerprint, e.SnapshotFingerprint)
}

// VerificationError is returned when the whole-program verifier gate
// cannot prove a patched access safe. Fatal for the entire load: no
// accessor in the program becomes callable.
type VerificationError struct {
	Path    string
	OpIndex int
	Reason  string
}

func (e VerificationError) Error() string {
	return fmt.Sprintf("verification rejected: accessor %s op %d: %s", e.Path, e.OpIndex, e.Reason)
}
