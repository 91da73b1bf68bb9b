// Package tree implements the transaction tree of node-branches that the
// editor package mutates: NBIDs, node content, and the invariants that
// must hold at commit time (spec §3).
//
// This generalizes the teacher's node/node.go -- a read-mostly directory
// index keyed by name -- into a mutable, NBID-keyed tree that tracks
// per-node flags (created/deleted/modified) the way an editor session
// needs.
package tree

import "github.com/rcowham/svnedit/wire"

// Kind is a node's kind: immutable once set (spec §3).
type Kind int

const (
	KindUnknown Kind = iota
	KindDir
	KindFile
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// PegPath anchors a node by (revision, relative-path). Rev == InTransaction
// means "the current transaction state" (spec §3).
type PegPath struct {
	Rev  wire.Revnum
	Path string
}

// InTransaction is the sentinel revision meaning "this peg-path refers to
// the current transaction state, not a committed revision".
const InTransaction = wire.InvalidRevnum

// IsInTransaction reports whether p anchors to the live transaction rather
// than a committed revision.
func (p PegPath) IsInTransaction() bool { return p.Rev == InTransaction }

// Content is a node's non-structural state (spec §3 "Node content").
// Exactly the kind-appropriate fields are non-nil; Validate enforces this.
type Content struct {
	Kind Kind
	// Ref, if non-empty (Path != ""), names an existing committed node
	// whose content is inherited. An override field takes precedence over
	// the inherited value for that field (spec §3).
	Ref PegPath

	Props map[string][]byte

	// File-only.
	Checksum []byte // SHA-1, may be nil if Stream is supplied instead/also
	Stream   []byte // inline content; nil means "no override, use Ref"

	// Symlink-only.
	Target string
}

func (c Content) hasRef() bool { return c.Ref.Path != "" }

// Validate enforces spec §3 invariant 2: "exactly the kind-appropriate
// payload fields are non-null; all others must be null."
func (c Content) Validate() error {
	switch c.Kind {
	case KindDir:
		if c.Checksum != nil || c.Stream != nil || c.Target != "" {
			return errKindMismatch(c.Kind, "directory content must not carry file/symlink fields")
		}
	case KindFile:
		if c.Target != "" {
			return errKindMismatch(c.Kind, "file content must not carry a symlink target")
		}
		if c.Checksum == nil && c.Stream == nil && !c.hasRef() {
			return errKindMismatch(c.Kind, "file content needs a checksum, a stream, or a reference")
		}
	case KindSymlink:
		if c.Checksum != nil || c.Stream != nil {
			return errKindMismatch(c.Kind, "symlink content must not carry file fields")
		}
		if c.Target == "" && !c.hasRef() {
			return errKindMismatch(c.Kind, "symlink content needs a target or a reference")
		}
	case KindUnknown:
		if c.Checksum != nil || c.Stream != nil || c.Target != "" {
			return errKindMismatch(c.Kind, "unknown-kind content must not carry file/symlink fields")
		}
		if !c.hasRef() {
			return errKindMismatch(c.Kind, "unknown-kind content is only valid when referencing another node")
		}
	}
	return nil
}
