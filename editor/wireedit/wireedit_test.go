package wireedit

import (
	"crypto/sha1"
	"net"
	"testing"

	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/repo"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/rcowham/svnedit/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(data string) []byte {
	sum := sha1.Sum([]byte(data))
	return sum[:]
}

func fc(data string) tree.Content {
	return tree.Content{Kind: tree.KindFile, Checksum: sha(data), Stream: []byte(data)}
}

func inTxn(path string) tree.PegPath {
	return tree.PegPath{Rev: tree.InTransaction, Path: path}
}

func pegAt(rev wire.Revnum, path string) tree.PegPath {
	return tree.PegPath{Rev: rev, Path: path}
}

// startSession wires a driver-side Editor to a receiving-side dispatch
// loop over an in-process connection pair, exactly the client/server
// split a network deployment has.
func startSession(t *testing.T, backend *repo.Memory, base wire.Revnum, caps editor.Capabilities) (*editor.Editor, repo.TxnHandle, chan error) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})

	h, err := backend.BeginTxn(base)
	require.NoError(t, err)
	cb := editor.NewTreeCallbacks(backend, h, caps, nil)

	done := make(chan error, 1)
	go func() {
		done <- wire.NewConn(serverSide).RunCommandLoop(NewServerTable(cb), nil)
	}()

	driver := editor.New(RemoteCallbacks(wire.NewConn(clientSide)))
	return driver, h, done
}

func TestRemoteEditSessionS3(t *testing.T) {
	backend := repo.NewMemory(nil)
	defer backend.Close()

	// Commit /a/b/c locally first.
	h, err := backend.BeginTxn(0)
	require.NoError(t, err)
	local := editor.New(editor.NewTreeCallbacks(backend, h, editor.Capabilities{}, nil))
	root := editor.AtAnchor(inTxn(""))
	require.NoError(t, local.Mk(root, "a", tree.KindDir))
	require.NoError(t, local.Mk(editor.Under(inTxn(""), "a"), "b", tree.KindDir))
	require.NoError(t, local.Mk(editor.Under(inTxn(""), "a/b"), "c", tree.KindFile))
	require.NoError(t, local.Put(editor.Under(inTxn(""), "a/b/c"), fc("x")))
	require.NoError(t, local.Complete())

	// Drive the move-then-delete edit across the wire.
	driver, _, done := startSession(t, backend, 1, editor.Capabilities{})
	require.NoError(t, driver.Mv(pegAt(1, "a/b"), editor.AtAnchor(inTxn("")), "x"))
	require.NoError(t, driver.Rm(editor.AtAnchor(pegAt(1, "a"))))
	require.NoError(t, driver.Complete())
	require.NoError(t, <-done)

	snap, err := backend.Snapshot(2)
	require.NoError(t, err)
	_, ok := snap.ResolvePath("x/c")
	assert.True(t, ok)
	_, ok = snap.ResolvePath("a")
	assert.False(t, ok)
}

func TestRemoteErrorKindSurvivesTheWire(t *testing.T) {
	backend := repo.NewMemory(nil)
	defer backend.Close()

	driver, _, done := startSession(t, backend, 0, editor.Capabilities{})
	err := driver.Put(editor.AtAnchor(pegAt(0, "nope")), fc("x"))
	require.Error(t, err)
	we, ok := err.(*wireerr.Error)
	require.True(t, ok)
	assert.Equal(t, wireerr.PathNotFound, we.Kind)

	// The connection stays usable after a recoverable failure.
	require.NoError(t, driver.Mk(editor.AtAnchor(inTxn("")), "d", tree.KindDir))
	require.NoError(t, driver.Complete())
	require.NoError(t, <-done)
}

func TestRemoteAbortEndsLoop(t *testing.T) {
	backend := repo.NewMemory(nil)
	defer backend.Close()

	driver, _, done := startSession(t, backend, 0, editor.Capabilities{})
	require.NoError(t, driver.Mk(editor.AtAnchor(inTxn("")), "d", tree.KindDir))
	require.NoError(t, driver.Abort())
	require.NoError(t, <-done)
	assert.Equal(t, editor.StateAborted, driver.State())
	assert.Equal(t, wire.Revnum(0), backend.Latest(), "an aborted edit publishes nothing")
}

func TestRemoteStyleBRoundTrip(t *testing.T) {
	backend := repo.NewMemory(nil)
	defer backend.Close()

	driver, _, done := startSession(t, backend, 0, editor.Capabilities{})
	require.NoError(t, driver.Add(101, tree.KindFile, 100, "f", fc("data")))
	require.NoError(t, driver.Add(100, tree.KindDir, tree.Root, "d", tree.Content{Kind: tree.KindDir}))
	require.NoError(t, driver.Complete())
	require.NoError(t, <-done)

	snap, err := backend.Snapshot(1)
	require.NoError(t, err)
	id, ok := snap.ResolvePath("d/f")
	require.True(t, ok)
	assert.Equal(t, tree.NBID(101), id)
}

func TestContentRoundTripWithProps(t *testing.T) {
	c := tree.Content{
		Kind: tree.KindFile,
		Ref:  tree.PegPath{Rev: 7, Path: "old/f"},
		Props: map[string][]byte{
			"svn:mime-type": []byte("text/plain"),
			"custom":        []byte{0, 1, 2},
		},
		Checksum: sha("x"),
		Stream:   []byte("x"),
	}
	got := decodeContent(encodeContent(c))
	assert.Equal(t, c, got)

	link := tree.Content{Kind: tree.KindSymlink, Target: "../elsewhere"}
	gotLink := decodeContent(encodeContent(link))
	assert.Equal(t, link.Kind, gotLink.Kind)
	assert.Equal(t, link.Target, gotLink.Target)
	assert.Nil(t, gotLink.Checksum)
	assert.Nil(t, gotLink.Stream)
}

func TestPegAndTxnPathRoundTrip(t *testing.T) {
	p := pegAt(42, "a/b c/d")
	assert.Equal(t, p, decodePegPath(encodePegPath(p)))

	intxn := inTxn("x")
	assert.Equal(t, intxn, decodePegPath(encodePegPath(intxn)))

	tp := editor.Under(pegAt(3, "anchor"), "created/below")
	assert.Equal(t, tp, decodeTxnPath(encodeTxnPath(tp)))
}

func TestUnsupportedOperationReportedOverWire(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	// A receiver with no Rm capability: the table reports the operation
	// as unsupported rather than dropping the connection.
	cb := editor.Callbacks{
		Abort: func() error { return nil },
	}
	done := make(chan error, 1)
	go func() {
		done <- wire.NewConn(serverSide).RunCommandLoop(NewServerTable(cb), nil)
	}()

	driver := editor.New(RemoteCallbacks(wire.NewConn(clientSide)))
	err := driver.Rm(editor.AtAnchor(inTxn("gone")))
	require.Error(t, err)
	we, ok := err.(*wireerr.Error)
	require.True(t, ok)
	assert.Equal(t, wireerr.PreconditionFailed, we.Kind)

	require.NoError(t, driver.Abort())
	require.NoError(t, <-done)
}
