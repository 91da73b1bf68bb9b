package editor

import (
	"github.com/rcowham/svnedit/repo"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/rcowham/svnedit/wireerr"
)

// checkSince implements spec §4.2's out-of-date rebase rule: an operation
// that names a since-revision is rejected if the node-branch's observable
// identity changed between since-rev and the transaction's base revision.
// checkNameParent/checkContent select which parts of identity this
// particular operation cares about (mv cares about location, not content;
// put is the reverse; rm/delete care about both and recurse over
// descendants since removing a subtree is sensitive to concurrent changes
// anywhere under it).
func checkSince(backend repo.Backend, id tree.NBID, sinceRev, base wire.Revnum, checkNameParent, checkContent, recursive bool) error {
	if sinceRev == base {
		return nil
	}
	since, err := backend.StateAt(id, sinceRev)
	if err != nil {
		return err
	}
	baseState, err := backend.StateAt(id, base)
	if err != nil {
		return err
	}
	if err := compareStates(since, baseState, checkNameParent, checkContent); err != nil {
		return err
	}
	if !recursive {
		return nil
	}
	snap, err := backend.Snapshot(sinceRev)
	if err != nil {
		return err
	}
	return walkCompare(backend, snap, id, base)
}

func walkCompare(backend repo.Backend, snap *tree.Transaction, id tree.NBID, base wire.Revnum) error {
	for _, child := range snap.Children(id) {
		cs, err := backend.StateAt(child.ID, base)
		if err != nil {
			return err
		}
		origin, err := originState(snap, child.ID)
		if err != nil {
			return err
		}
		if err := compareStates(origin, cs, true, true); err != nil {
			return err
		}
		if err := walkCompare(backend, snap, child.ID, base); err != nil {
			return err
		}
	}
	return nil
}

func originState(snap *tree.Transaction, id tree.NBID) (repo.NodeState, error) {
	b, ok := snap.Get(id)
	if !ok {
		return repo.NodeState{Exists: false}, nil
	}
	return repo.NodeState{
		Exists:      true,
		Parent:      b.Parent,
		Name:        b.Name,
		ContentHash: tree.ContentHash(b.Content),
	}, nil
}

func compareStates(since, base repo.NodeState, checkNameParent, checkContent bool) error {
	if since.Exists != base.Exists {
		return wireerr.New(wireerr.OutOfDate, "node was created or removed by an intervening commit")
	}
	if !since.Exists {
		return nil
	}
	if checkNameParent && (since.Parent != base.Parent || since.Name != base.Name) {
		return wireerr.New(wireerr.OutOfDate, "node was moved or renamed by an intervening commit")
	}
	if checkContent && since.ContentHash != base.ContentHash {
		return wireerr.New(wireerr.OutOfDate, "node's content was changed by an intervening commit")
	}
	return nil
}
