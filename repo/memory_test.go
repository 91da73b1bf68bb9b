package repo

import (
	"testing"

	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirContent() tree.Content { return tree.Content{Kind: tree.KindDir} }

func fileContent(data string) tree.Content {
	sum := sha1Sum([]byte(data))
	return tree.Content{Kind: tree.KindFile, Checksum: sum, Stream: []byte(data)}
}

func TestMemoryBeginCommitRoundTrip(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	require.NoError(t, h.Tree().Add(1, tree.Root, "a", dirContent(), true))
	require.NoError(t, h.Tree().Add(2, 1, "f", fileContent("hello"), true))

	rev, err := m.CommitTxn(h)
	require.NoError(t, err)
	assert.Equal(t, wire.Revnum(1), rev)
	assert.Equal(t, wire.Revnum(1), m.Latest())

	id, ok, err := m.Resolve(rev, "a/f")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tree.NBID(2), id)
}

func TestMemoryCommitRejectsChecksumMismatch(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	bad := tree.Content{Kind: tree.KindFile, Checksum: []byte("not-a-real-sha1"), Stream: []byte("hello")}
	require.NoError(t, h.Tree().Add(1, tree.Root, "f", bad, true))

	_, err = m.CommitTxn(h)
	assert.Error(t, err)
}

func TestMemoryCommitRejectsInvalidFinalState(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	unresolved := tree.Content{Kind: tree.KindFile, Ref: tree.PegPath{Rev: 99, Path: "/nope"}}
	require.NoError(t, h.Tree().Add(1, tree.Root, "f", unresolved, true))

	_, err = m.CommitTxn(h)
	assert.Error(t, err)
}

func TestMemoryTraceForwardFollowsMove(t *testing.T) {
	// S3: /a/b/c, mv a/b -> /x, rm /a, committed. Trace-forward from the
	// original peg-path of c still resolves to its post-move location.
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	require.NoError(t, h.Tree().Add(1, tree.Root, "a", dirContent(), true))
	require.NoError(t, h.Tree().Add(2, 1, "b", dirContent(), true))
	require.NoError(t, h.Tree().Add(3, 2, "c", fileContent("x"), true))
	rev1, err := m.CommitTxn(h)
	require.NoError(t, err)

	h2, err := m.BeginTxn(rev1)
	require.NoError(t, err)
	require.NoError(t, h2.Tree().Move(2, tree.Root, "x"))
	require.NoError(t, h2.Tree().Delete(1))
	rev2, err := m.CommitTxn(h2)
	require.NoError(t, err)

	path, present, err := m.TraceForward(tree.PegPath{Rev: rev1, Path: "a/b/c"}, rev2)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "x/c", path)

	_, present, err = m.TraceForward(tree.PegPath{Rev: rev1, Path: "a"}, rev2)
	require.NoError(t, err)
	assert.False(t, present, "a was removed by the rm, trace-forward must report absence")
}

func TestMemoryFetchContent(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	require.NoError(t, h.Tree().Add(1, tree.Root, "f", fileContent("payload"), true))
	rev, err := m.CommitTxn(h)
	require.NoError(t, err)

	data, err := m.FetchContent(tree.PegPath{Rev: rev, Path: "f"})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMemoryStateAtReflectsMove(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	require.NoError(t, h.Tree().Add(1, tree.Root, "a", dirContent(), true))
	require.NoError(t, h.Tree().Add(2, 1, "b", dirContent(), true))
	rev1, err := m.CommitTxn(h)
	require.NoError(t, err)

	before, err := m.StateAt(2, rev1)
	require.NoError(t, err)
	assert.True(t, before.Exists)
	assert.Equal(t, tree.NBID(1), before.Parent)

	h2, err := m.BeginTxn(rev1)
	require.NoError(t, err)
	require.NoError(t, h2.Tree().Move(2, tree.Root, "b"))
	rev2, err := m.CommitTxn(h2)
	require.NoError(t, err)

	after, err := m.StateAt(2, rev2)
	require.NoError(t, err)
	assert.Equal(t, tree.Root, after.Parent)
	assert.Equal(t, before.ContentHash, after.ContentHash, "a move must not change the node's own content hash")

	gone, err := m.StateAt(1, rev2)
	require.NoError(t, err)
	assert.True(t, gone.Exists, "dir 'a' (now empty) was never deleted in this scenario")
}

func TestMemorySnapshotIsIndependentCopy(t *testing.T) {
	m := NewMemory(nil)
	defer m.Close()

	h, err := m.BeginTxn(m.Latest())
	require.NoError(t, err)
	require.NoError(t, h.Tree().Add(1, tree.Root, "a", dirContent(), true))
	rev, err := m.CommitTxn(h)
	require.NoError(t, err)

	snap, err := m.Snapshot(rev)
	require.NoError(t, err)
	require.NoError(t, snap.Add(2, 1, "b", dirContent(), true))

	_, ok := snap.Get(2)
	assert.True(t, ok)
	live, err := m.Snapshot(rev)
	require.NoError(t, err)
	_, present := live.Get(2)
	assert.False(t, present, "mutating a snapshot must not affect the stored revision")
}
