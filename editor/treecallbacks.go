package editor

import (
	"github.com/rcowham/svnedit/repo"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/rcowham/svnedit/wireerr"
	"github.com/sirupsen/logrus"
)

// Capabilities is the negotiated capability set for a TreeCallbacks
// session -- currently just the one Open Question this module had to
// settle (see the project's design ledger): whether cp/copy-one/copy-tree
// may read a source that lives only in the in-progress transaction rather
// than a committed revision.
type Capabilities struct {
	AllowTxnCopySource bool
}

// TreeCallbacks is the canonical, in-process Callbacks implementation: it
// drives a tree.Transaction against a repo.Backend, enforcing spec §4.2's
// preconditions and out-of-date rebase rules itself rather than pushing
// that logic into the backend.
type TreeCallbacks struct {
	backend repo.Backend
	txn     repo.TxnHandle
	initial *tree.Transaction
	caps    Capabilities
	log     *logrus.Logger
}

// NewTreeCallbacks builds a Callbacks table bound to txn (already begun
// against backend). initial is snapshotted immediately so Style B
// preconditions ("NBID live in initial state") are judged against the
// state the transaction started from, not against whatever the
// in-progress, possibly-still-invalid tree looks like mid-edit.
func NewTreeCallbacks(backend repo.Backend, txn repo.TxnHandle, caps Capabilities, log *logrus.Logger) Callbacks {
	if log == nil {
		log = logrus.StandardLogger()
	}
	tc := &TreeCallbacks{
		backend: backend,
		txn:     txn,
		initial: txn.Tree().Clone(),
		caps:    caps,
		log:     log,
	}
	return Callbacks{
		Mk:  tc.mk,
		Cp:  tc.cp,
		Mv:  tc.mv,
		Res: tc.res,
		Rm:  tc.rm,
		Put: tc.put,

		Add:      tc.add,
		CopyOne:  tc.copyOne,
		CopyTree: tc.copyTree,
		Delete:   tc.delete,
		Alter:    tc.alter,

		Complete: tc.complete,
		Abort:    tc.abort,
	}
}

func (tc *TreeCallbacks) resolveAnchor(anchor tree.PegPath) (tree.NBID, error) {
	if anchor.IsInTransaction() {
		id, ok := tc.txn.Tree().ResolvePath(anchor.Path)
		if !ok {
			return 0, errPathNotFound("path not found in transaction: " + anchor.Path)
		}
		return id, nil
	}
	txnPath, present, err := tc.backend.TraceForward(anchor, tc.txn.Base())
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, errPathNotFound("peg-path no longer present at the transaction's base revision")
	}
	id, ok := tc.txn.Tree().ResolvePath(txnPath)
	if !ok {
		return 0, errPathNotFound("traced transaction-path not found")
	}
	return id, nil
}

// resolveTxnPath resolves a full TxnPath (anchor + created-relpath
// suffix) to the NBID it currently names.
func (tc *TreeCallbacks) resolveTxnPath(tp TxnPath) (tree.NBID, error) {
	cur, err := tc.resolveAnchor(tp.Anchor)
	if err != nil {
		return 0, err
	}
	for _, part := range splitSuffix(tp.Suffix) {
		b, ok := tc.txn.Tree().ChildNamed(cur, part)
		if !ok {
			return 0, errPathNotFound("created-relpath component not found: " + part)
		}
		cur = b.ID
	}
	return cur, nil
}

// Style A: mk, cp, mv, res, rm, put.

func (tc *TreeCallbacks) mk(parent TxnPath, name string, kind tree.Kind) error {
	tc.log.Debugf("editor: mk %s %q", kind, name)
	parentID, err := tc.resolveTxnPath(parent)
	if err != nil {
		return err
	}
	id := tc.txn.Tree().AllocateNBID()
	return tc.txn.Tree().Add(id, parentID, name, tree.Content{Kind: kind}, true)
}

func (tc *TreeCallbacks) copySourceTree(from tree.PegPath) (*tree.Transaction, tree.NBID, error) {
	if from.IsInTransaction() {
		if !tc.caps.AllowTxnCopySource {
			return nil, 0, wireerr.New(wireerr.PreconditionFailed, "copying from the in-progress transaction is not supported")
		}
		id, ok := tc.txn.Tree().ResolvePath(from.Path)
		if !ok {
			return nil, 0, errPathNotFound("copy source not found in transaction: " + from.Path)
		}
		return tc.txn.Tree(), id, nil
	}
	snap, err := tc.backend.Snapshot(from.Rev)
	if err != nil {
		return nil, 0, err
	}
	id, ok := snap.ResolvePath(from.Path)
	if !ok {
		return nil, 0, errPathNotFound("copy source does not exist at its revision")
	}
	return snap, id, nil
}

// copySubtree recursively branches srcID (from srcTree) into destParent
// under name, assigning each copied node a fresh NBID -- property 9:
// "cp assigns a fresh NBID distinct from the source's, for the copy root
// and every node beneath it".
func (tc *TreeCallbacks) copySubtree(srcTree *tree.Transaction, srcID, destParent tree.NBID, name string, checked bool) (tree.NBID, error) {
	b, ok := srcTree.Get(srcID)
	if !ok {
		return 0, errPathNotFound("copy source node vanished")
	}
	newID := tc.txn.Tree().AllocateNBID()
	var err error
	if checked {
		err = tc.txn.Tree().Add(newID, destParent, name, b.Content, true)
	} else {
		err = tc.txn.Tree().AddUnchecked(newID, destParent, name, b.Content, true)
	}
	if err != nil {
		return 0, err
	}
	for _, child := range srcTree.Children(srcID) {
		if _, err := tc.copySubtree(srcTree, child.ID, newID, child.Name, checked); err != nil {
			return 0, err
		}
	}
	return newID, nil
}

func (tc *TreeCallbacks) cp(from tree.PegPath, parent TxnPath, name string) error {
	srcTree, srcID, err := tc.copySourceTree(from)
	if err != nil {
		return err
	}
	parentID, err := tc.resolveTxnPath(parent)
	if err != nil {
		return err
	}
	_, err = tc.copySubtree(srcTree, srcID, parentID, name, true)
	return err
}

func (tc *TreeCallbacks) mv(from tree.PegPath, newParent TxnPath, newName string) error {
	tc.log.Debugf("editor: mv %s@%d -> %q", from.Path, from.Rev, newName)
	id, err := tc.resolveAnchor(from)
	if err != nil {
		return err
	}
	if !from.IsInTransaction() {
		if err := checkSince(tc.backend, id, from.Rev, tc.txn.BaseFor(from.Path), true, false, false); err != nil {
			return err
		}
	}
	newParentID, err := tc.resolveTxnPath(newParent)
	if err != nil {
		return err
	}
	return tc.txn.Tree().Move(id, newParentID, newName)
}

func (tc *TreeCallbacks) res(from tree.PegPath, parent TxnPath, name string) error {
	if from.IsInTransaction() {
		return wireerr.New(wireerr.PreconditionFailed, "res requires a committed peg-path")
	}
	snap, err := tc.backend.Snapshot(from.Rev)
	if err != nil {
		return err
	}
	id, ok := snap.ResolvePath(from.Path)
	if !ok {
		return errPathNotFound("resurrection source never existed at that revision")
	}
	if _, stillLive := tc.txn.Tree().Get(id); stillLive {
		return wireerr.New(wireerr.PreconditionFailed, "node is still live, not deleted")
	}
	if tc.txn.Tree().WasDeletedInTxn(id) {
		return wireerr.New(wireerr.PreconditionFailed, "cannot resurrect a node deleted within this same edit")
	}
	parentID, err := tc.resolveTxnPath(parent)
	if err != nil {
		return err
	}
	b, _ := snap.Get(id)
	// Resurrection preserves the node-branch's original identity rather
	// than minting a fresh one.
	return tc.txn.Tree().Add(id, parentID, name, b.Content, true)
}

func (tc *TreeCallbacks) rm(loc TxnPath) error {
	id, err := tc.resolveTxnPath(loc)
	if err != nil {
		return err
	}
	if loc.Suffix == "" && !loc.Anchor.IsInTransaction() {
		if err := checkSince(tc.backend, id, loc.Anchor.Rev, tc.txn.BaseFor(loc.Anchor.Path), true, true, true); err != nil {
			return err
		}
	}
	return tc.txn.Tree().Delete(id)
}

func (tc *TreeCallbacks) put(loc TxnPath, content tree.Content) error {
	id, err := tc.resolveTxnPath(loc)
	if err != nil {
		return err
	}
	if loc.Suffix == "" && !loc.Anchor.IsInTransaction() {
		if err := checkSince(tc.backend, id, loc.Anchor.Rev, tc.txn.BaseFor(loc.Anchor.Path), false, true, false); err != nil {
			return err
		}
	}
	return tc.txn.Tree().SetContent(id, content)
}

// Style B: add, copy-one, copy-tree, delete, alter.

func (tc *TreeCallbacks) add(id tree.NBID, kind tree.Kind, parent tree.NBID, name string, content tree.Content) error {
	if content.Kind == tree.KindUnknown {
		content.Kind = kind
	}
	return tc.txn.Tree().AddUnchecked(id, parent, name, content, true)
}

func (tc *TreeCallbacks) checkCopySource(srcRev wire.Revnum, srcID tree.NBID) error {
	if srcRev == wire.Revnum(tree.InTransaction) {
		if !tc.caps.AllowTxnCopySource {
			return wireerr.New(wireerr.PreconditionFailed, "copying from the final state is not supported")
		}
		if _, ok := tc.txn.Tree().Get(srcID); !ok {
			return wireerr.New(wireerr.PreconditionFailed, "copy source not present in final state")
		}
		return nil
	}
	snap, err := tc.backend.Snapshot(srcRev)
	if err != nil {
		return err
	}
	if _, ok := snap.Get(srcID); !ok {
		return wireerr.New(wireerr.PreconditionFailed, "copy source does not exist at the given revision")
	}
	return nil
}

func (tc *TreeCallbacks) copyOne(id tree.NBID, srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string, content tree.Content) error {
	if err := tc.checkCopySource(srcRev, srcID); err != nil {
		return err
	}
	return tc.txn.Tree().AddUnchecked(id, parent, name, content, true)
}

func (tc *TreeCallbacks) copyTree(srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string) error {
	var srcTree *tree.Transaction
	if srcRev == wire.Revnum(tree.InTransaction) {
		if !tc.caps.AllowTxnCopySource {
			return wireerr.New(wireerr.PreconditionFailed, "copying from the final state is not supported")
		}
		srcTree = tc.txn.Tree()
	} else {
		snap, err := tc.backend.Snapshot(srcRev)
		if err != nil {
			return err
		}
		srcTree = snap
	}
	_, err := tc.copySubtree(srcTree, srcID, parent, name, false)
	return err
}

func (tc *TreeCallbacks) delete(sinceRev wire.Revnum, id tree.NBID) error {
	if _, ok := tc.initial.Get(id); !ok {
		return wireerr.New(wireerr.PreconditionFailed, "NBID not live in the transaction's initial state")
	}
	if err := checkSince(tc.backend, id, sinceRev, tc.txn.BaseFor(tc.initial.Path(id)), true, true, true); err != nil {
		return err
	}
	return tc.txn.Tree().DeleteUnchecked(id)
}

func (tc *TreeCallbacks) alter(sinceRev wire.Revnum, id tree.NBID, newParent tree.NBID, newName string, content *tree.Content) error {
	if _, ok := tc.initial.Get(id); !ok {
		return wireerr.New(wireerr.PreconditionFailed, "NBID not live in the transaction's initial state")
	}
	if err := checkSince(tc.backend, id, sinceRev, tc.txn.BaseFor(tc.initial.Path(id)), true, true, false); err != nil {
		return err
	}
	if err := tc.txn.Tree().ReparentUnchecked(id, newParent, newName); err != nil {
		return err
	}
	if content != nil {
		return tc.txn.Tree().SetContentUnchecked(id, *content)
	}
	return nil
}

func (tc *TreeCallbacks) complete() error {
	rev, err := tc.backend.CommitTxn(tc.txn)
	if err != nil {
		tc.log.Infof("editor: commit at base r%d rejected: %v", tc.txn.Base(), err)
		return err
	}
	tc.log.Infof("editor: committed r%d", rev)
	return nil
}

func (tc *TreeCallbacks) abort() error {
	tc.log.Infof("editor: edit at base r%d discarded", tc.txn.Base())
	return nil
}
