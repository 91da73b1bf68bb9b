// Package repo defines the external repository-backend contract (spec §6)
// that the editor talks to, and an in-memory reference implementation
// used by tests and the demo CLI. Everything here is the "external
// collaborator" spec §1 says is out of scope for the core -- this package
// is a stand-in so the editor has something real to drive end to end.
package repo

import (
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
)

// TxnHandle is an opaque, in-progress commit transaction (spec §6
// "begin-txn(base-rev) -> txn-handle").
type TxnHandle interface {
	// Tree exposes the mutable transaction tree the editor drives.
	Tree() *tree.Transaction
	// Base returns the revision this transaction's root-relative
	// operations are rebased against.
	Base() wire.Revnum
	// BaseFor resolves path against the transaction's mixed-revision base
	// mapping. A commit may be based on a set of (path, rev) pairs rather
	// than a single revision; paths with no entry fall back to Base().
	BaseFor(path string) wire.Revnum
}

// NodeState is a cheap summary of one node-branch's identity at a given
// revision, used by the editor to implement the OOD rebase rules of spec
// §4.2 without the backend having to know the editor's per-operation
// precondition tables.
type NodeState struct {
	Exists bool
	Parent tree.NBID
	Name   string
	// ContentHash is an opaque equality token over the node's own content
	// (not its children): equal hashes mean "content did not change".
	ContentHash string
}

// Backend is the external repository-access contract (spec §6).
type Backend interface {
	// BeginTxn opens a new commit transaction rooted at base.
	BeginTxn(base wire.Revnum) (TxnHandle, error)

	// CommitTxn validates and publishes txn as a new revision. A
	// validation failure returns a *wireerr.Error (Conflict or
	// OutOfDate); otherwise the new revision number.
	CommitTxn(txn TxnHandle) (wire.Revnum, error)

	// TraceForward resolves a peg-path to its current transaction-path at
	// toRev, per spec §4.2 "Resolution of peg-paths to transaction
	// paths". present is false if the node-branch no longer exists at
	// toRev (spec: "Trace failure ... reported as PATH_NOT_FOUND unless
	// the operation tolerates absence").
	TraceForward(peg tree.PegPath, toRev wire.Revnum) (path string, present bool, err error)

	// FetchContent reads a committed node's file content.
	FetchContent(peg tree.PegPath) ([]byte, error)

	// Resolve looks up the NBID of path as it existed at rev, the
	// primitive the editor uses (alongside StateAt) to implement spec
	// §4.2's OOD rebase table.
	Resolve(rev wire.Revnum, path string) (tree.NBID, bool, error)

	// StateAt summarizes id's identity as of rev.
	StateAt(id tree.NBID, rev wire.Revnum) (NodeState, error)

	// Snapshot returns a read-only copy of the tree as committed at rev,
	// the primitive cp/copy-one/copy-tree use to read a source subtree
	// that lives outside the in-progress transaction.
	Snapshot(rev wire.Revnum) (*tree.Transaction, error)

	// Latest returns the most recently committed revision number.
	Latest() wire.Revnum
}
