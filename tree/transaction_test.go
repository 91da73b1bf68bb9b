package tree

import (
	"testing"

	"github.com/rcowham/svnedit/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirContent() Content { return Content{Kind: KindDir} }

func fileContent(data string) Content {
	return Content{Kind: KindFile, Stream: []byte(data)}
}

func TestAddAndChildren(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "a", dirContent(), true))
	require.NoError(t, tx.Add(2, 1, "b", fileContent("hi"), true))

	kids := tx.Children(Root)
	require.Len(t, kids, 1)
	assert.Equal(t, "a", kids[0].Name)

	kids = tx.Children(1)
	require.Len(t, kids, 1)
	assert.Equal(t, "b", kids[0].Name)
	assert.Equal(t, "a/b", tx.Path(2))
}

func TestAddDuplicateNameRejected(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "a", dirContent(), true))
	err := tx.Add(2, Root, "a", dirContent(), true)
	assert.Error(t, err)
}

func TestMovePreservesNBID(t *testing.T) {
	// S3: /a/b/c, mv a/b -> /x, rm /a. Final: /x/c survives.
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "a", dirContent(), true))
	require.NoError(t, tx.Add(2, 1, "b", dirContent(), true))
	require.NoError(t, tx.Add(3, 2, "c", fileContent("x"), true))

	require.NoError(t, tx.Move(2, Root, "x"))
	b2, _ := tx.Get(2)
	assert.Equal(t, NBID(2), b2.ID)
	assert.Equal(t, "x", b2.Name)
	assert.Equal(t, Root, b2.Parent)

	require.NoError(t, tx.Delete(1))

	_, aExists := tx.Get(1)
	assert.False(t, aExists)
	cNode, cExists := tx.Get(3)
	require.True(t, cExists)
	assert.Equal(t, "x/c", tx.Path(cNode.ID))
}

func TestDeletePreservesMovedOutDescendant(t *testing.T) {
	// property 10: rm X where Y had been mv'd out of X beforehand survives.
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "x", dirContent(), true))
	require.NoError(t, tx.Add(2, 1, "y", dirContent(), true))
	require.NoError(t, tx.Move(2, Root, "y"))

	require.NoError(t, tx.Delete(1))

	_, ok := tx.Get(2)
	assert.True(t, ok, "y must survive since it was moved out before the rm")
}

func TestDeleteRemovesCurrentChildren(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "x", dirContent(), true))
	require.NoError(t, tx.Add(2, 1, "y", dirContent(), true))
	require.NoError(t, tx.Add(3, 2, "z", fileContent("z"), true))

	require.NoError(t, tx.Delete(1))
	_, ok2 := tx.Get(2)
	_, ok3 := tx.Get(3)
	assert.False(t, ok2)
	assert.False(t, ok3)
}

func TestMoveCycleRejected(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "a", dirContent(), true))
	require.NoError(t, tx.Add(2, 1, "b", dirContent(), true))
	err := tx.Move(1, 2, "a")
	assert.Error(t, err)
}

func TestValidateDuplicateNameInDifferentParentsOK(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "dirA", dirContent(), true))
	require.NoError(t, tx.Add(2, Root, "dirB", dirContent(), true))
	require.NoError(t, tx.Add(3, 1, "same.txt", fileContent("1"), true))
	require.NoError(t, tx.Add(4, 2, "same.txt", fileContent("2"), true))
	assert.NoError(t, tx.Validate(nil))
}

func TestValidateFileWithoutChecksumOrResolvedRefFails(t *testing.T) {
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "f", Content{Kind: KindFile, Ref: PegPath{Rev: 3, Path: "/f"}}, true))
	err := tx.Validate(func(PegPath) bool { return false })
	assert.Error(t, err)
	assert.NoError(t, tx.Validate(func(PegPath) bool { return true }))
}

func TestCaseInsensitiveNameCollision(t *testing.T) {
	tx := New(true, nil)
	require.NoError(t, tx.Add(1, Root, "README", fileContent("a"), true))
	err := tx.Add(2, Root, "readme", fileContent("b"), true)
	assert.Error(t, err)
}

func TestContentValidateKindMismatch(t *testing.T) {
	err := Content{Kind: KindDir, Target: "x"}.Validate()
	require.Error(t, err)
	assert.Equal(t, wireerr.Conflict, err.(*wireerr.Error).Kind)
	assert.Error(t, Content{Kind: KindSymlink}.Validate())
	assert.NoError(t, Content{Kind: KindSymlink, Target: "y"}.Validate())
	assert.Error(t, Content{Kind: KindFile}.Validate())
	assert.NoError(t, Content{Kind: KindFile, Checksum: []byte("abc")}.Validate())
}

func TestValidateRejectsChildrenUnderFileNode(t *testing.T) {
	// AddUnchecked bypasses the parent-is-a-directory check at call time;
	// the final-state pass must still catch it.
	tx := New(false, nil)
	require.NoError(t, tx.Add(1, Root, "f", fileContent("x"), true))
	require.NoError(t, tx.AddUnchecked(2, 1, "child", fileContent("y"), true))

	err := tx.Validate(nil)
	require.Error(t, err)
	assert.Equal(t, wireerr.Conflict, err.(*wireerr.Error).Kind)
}
