package editor

import (
	"testing"

	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txnRoot() TxnPath {
	return AtAnchor(tree.PegPath{Rev: tree.InTransaction, Path: ""})
}

func TestUnsupportedOperationReturnsPreconditionFailed(t *testing.T) {
	ed := New(Callbacks{})
	err := ed.Mk(txnRoot(), "a", tree.KindDir)
	require.Error(t, err)
	we, ok := err.(*wireerr.Error)
	require.True(t, ok)
	assert.Equal(t, wireerr.PreconditionFailed, we.Kind)
}

func TestOperationsAfterCompleteFailWithEditFinished(t *testing.T) {
	ed := New(Callbacks{
		Mk:       func(TxnPath, string, tree.Kind) error { return nil },
		Complete: func() error { return nil },
	})
	require.NoError(t, ed.Complete())
	assert.Equal(t, StateCompleted, ed.State())

	err := ed.Mk(txnRoot(), "a", tree.KindDir)
	require.Error(t, err)
	assert.Equal(t, wireerr.EditFinished, err.(*wireerr.Error).Kind)

	err = ed.Complete()
	require.Error(t, err)
	assert.Equal(t, wireerr.EditFinished, err.(*wireerr.Error).Kind)
}

func TestOperationsAfterAbortFailWithEditAborted(t *testing.T) {
	ed := New(Callbacks{
		Mk: func(TxnPath, string, tree.Kind) error { return nil },
	})
	require.NoError(t, ed.Abort())
	assert.Equal(t, StateAborted, ed.State())

	err := ed.Mk(txnRoot(), "a", tree.KindDir)
	require.Error(t, err)
	assert.Equal(t, wireerr.EditAborted, err.(*wireerr.Error).Kind)

	// Abort is idempotent.
	assert.NoError(t, ed.Abort())
}

func TestAbortAfterCompleteRejected(t *testing.T) {
	ed := New(Callbacks{Complete: func() error { return nil }})
	require.NoError(t, ed.Complete())
	err := ed.Abort()
	require.Error(t, err)
	assert.Equal(t, wireerr.EditFinished, err.(*wireerr.Error).Kind)
}

func TestFailedCompleteLeavesSessionOpen(t *testing.T) {
	ed := New(Callbacks{
		Mk:       func(TxnPath, string, tree.Kind) error { return nil },
		Complete: func() error { return wireerr.New(wireerr.Conflict, "invalid final state") },
	})
	err := ed.Complete()
	require.Error(t, err)
	assert.Equal(t, StateOpen, ed.State())
	assert.NoError(t, ed.Mk(txnRoot(), "a", tree.KindDir))
}

func TestCancellationAbortsSession(t *testing.T) {
	fire := false
	ed := New(Callbacks{
		Mk: func(TxnPath, string, tree.Kind) error { return nil },
	}, WithCancel(func() error {
		if fire {
			return wireerr.New(wireerr.Cancelled, "caller gave up")
		}
		return nil
	}))

	require.NoError(t, ed.Mk(txnRoot(), "a", tree.KindDir))
	fire = true
	err := ed.Mk(txnRoot(), "b", tree.KindDir)
	require.Error(t, err)
	assert.Equal(t, wireerr.Cancelled, err.(*wireerr.Error).Kind)
	assert.Equal(t, StateAborted, ed.State())

	err = ed.Mk(txnRoot(), "c", tree.KindDir)
	require.Error(t, err)
	assert.Equal(t, wireerr.EditAborted, err.(*wireerr.Error).Kind)
}

func TestDispatchForwardsArguments(t *testing.T) {
	var gotFrom tree.PegPath
	var gotName string
	ed := New(Callbacks{
		Cp: func(from tree.PegPath, parent TxnPath, name string) error {
			gotFrom = from
			gotName = name
			return nil
		},
	})
	from := tree.PegPath{Rev: 3, Path: "a/b"}
	require.NoError(t, ed.Cp(from, txnRoot(), "copied"))
	assert.Equal(t, from, gotFrom)
	assert.Equal(t, "copied", gotName)
}
