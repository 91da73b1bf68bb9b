package wire

import (
	"testing"

	"github.com/rcowham/svnedit/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleWordsAndCStringsRoundTrip(t *testing.T) {
	b := &buf{}
	w := NewConn(b)
	require.NoError(t, w.WriteTuple("wc", "edit-cmd", "a path/with spaces"))
	require.NoError(t, w.Flush())

	r := NewConn(b)
	vals, err := r.ReadTuple("wc")
	require.NoError(t, err)
	assert.Equal(t, "edit-cmd", vals[0])
	assert.Equal(t, "a path/with spaces", vals[1])
}

func TestTupleNestedGroupRoundTrip(t *testing.T) {
	b := &buf{}
	w := NewConn(b)
	require.NoError(t, w.WriteTuple("n(ns)s",
		uint64(1),
		[]interface{}{uint64(2), []byte("inner")},
		[]byte("outer")))
	require.NoError(t, w.Flush())

	r := NewConn(b)
	vals, err := r.ReadTuple("n(ns)s")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vals[0])
	sub := vals[1].([]interface{})
	assert.Equal(t, uint64(2), sub[0])
	assert.Equal(t, []byte("inner"), sub[1])
	assert.Equal(t, []byte("outer"), vals[2])
}

func TestCStringWithNULRejected(t *testing.T) {
	b := &buf{}
	w := NewConn(b)
	err := w.WriteTuple("c", "has\x00nul")
	require.Error(t, err)

	b2 := &buf{}
	w2 := NewConn(b2)
	require.NoError(t, w2.WriteItem(List(String([]byte("has\x00nul")))))
	require.NoError(t, w2.Flush())
	r := NewConn(b2)
	_, err = r.ReadTuple("c")
	require.Error(t, err)
	assert.Equal(t, wireerr.MalformedData, err.(*wireerr.Error).Kind)
}

func TestRevnumRoundTrip(t *testing.T) {
	b := &buf{}
	w := NewConn(b)
	require.NoError(t, w.WriteTuple("r", Revnum(9)))
	require.NoError(t, w.Flush())

	r := NewConn(b)
	vals, err := r.ReadTuple("r")
	require.NoError(t, err)
	assert.Equal(t, Revnum(9), vals[0])
}

func TestWritingInvalidRevnumOutsideOptionalPanics(t *testing.T) {
	b := &buf{}
	w := NewConn(b)
	assert.Panics(t, func() {
		_ = w.WriteTuple("r", InvalidRevnum)
	})
}
