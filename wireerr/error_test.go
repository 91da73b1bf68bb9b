package wireerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainAndFromRecordsRoundTrip(t *testing.T) {
	inner := NewAt(PathNotFound, "A", "x.c", 10)
	outer := Wrap(Conflict, "B", inner)

	records := Chain(outer)
	assert.Len(t, records, 2)
	assert.Equal(t, "B", records[0].Message)
	assert.Equal(t, "A", records[1].Message)
	assert.Equal(t, "x.c", records[1].File)
	assert.Equal(t, uint64(10), records[1].Line)

	rebuilt := FromRecords(records, KindFromCode)
	assert.Equal(t, Conflict, rebuilt.Kind)
	assert.NotNil(t, rebuilt.Unwrap())
	cause := rebuilt.Unwrap().(*Error)
	assert.Equal(t, PathNotFound, cause.Kind)
	assert.Equal(t, "x.c", cause.File)
	assert.Equal(t, uint64(10), cause.Line)
}

func TestErrorIsKind(t *testing.T) {
	err := New(OutOfDate, "stale")
	assert.True(t, errors.Is(err, Kind(OutOfDate)))
	assert.False(t, errors.Is(err, Kind(Conflict)))
}

func TestFromRecordsEmpty(t *testing.T) {
	assert.Nil(t, FromRecords(nil, KindFromCode))
}

func TestKindFromCodeUnknownFallsBackToIOError(t *testing.T) {
	assert.Equal(t, IOError, KindFromCode(999999999))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "OUT_OF_DATE", OutOfDate.String())
	assert.Equal(t, "UNKNOWN_KIND", Kind(-1).String())
}
