package tree

import (
	"sort"
	"strings"

	"github.com/rcowham/svnedit/wireerr"
	"github.com/sirupsen/logrus"
)

// NBID is an opaque node-branch identifier, unique within one edit session
// (spec §3 "Node-branch identifier (NBID)"). The driver assigns NBIDs --
// Transaction never invents one on its own behalf, except through
// AllocateNBID for nodes created by the ordered, path-addressed style and
// for the nodes a copy-tree creates, where NBIDs are an internal
// identity-tracking detail never surfaced to the caller.
type NBID int64

// NoParent marks the root's non-existent parent.
const NoParent NBID = -1

// Root is the NBID of the always-present root directory (spec §3).
const Root NBID = 0

// Flags records the per-node-branch bookkeeping spec §3 calls for.
type Flags struct {
	CreatedInTxn bool
	Modified     bool
}

// Branch is one node-branch's transaction-local state: (parent, name,
// content, flags) (spec §3 "Transaction state").
type Branch struct {
	ID      NBID
	Parent  NBID
	Name    string
	Content Content
	Flags   Flags
}

// Transaction is the tree of node-branches accumulated by one edit
// session. It is the generalization of the teacher's node/node.go: instead
// of a read-mostly filename index, it is a mutable tree keyed by NBID that
// tracks parent/name/content/flags and enforces the structural invariants
// from spec §3/§4.2.
type Transaction struct {
	nodes           map[NBID]*Branch
	nextAuto        NBID
	caseInsensitive bool
	log             *logrus.Logger
	deletedInTxn    map[NBID]bool
}

// New creates a transaction containing only the implicit root directory.
func New(caseInsensitive bool, log *logrus.Logger) *Transaction {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Transaction{
		nodes:           map[NBID]*Branch{},
		nextAuto:        Root + 1,
		caseInsensitive: caseInsensitive,
		log:             log,
		deletedInTxn:    map[NBID]bool{},
	}
	t.nodes[Root] = &Branch{ID: Root, Parent: NoParent, Name: "", Content: Content{Kind: KindDir}}
	return t
}

// WasDeletedInTxn reports whether id was live at some point during this
// transaction and was subsequently removed by Delete/DeleteUnchecked --
// the bookkeeping "res" needs to reject resurrecting a node this same edit
// just deleted (spec §4.2, Open Question on res/txn-local-deletion
// interaction).
func (t *Transaction) WasDeletedInTxn(id NBID) bool {
	return t.deletedInTxn[id]
}

// AllocateNBID hands out a fresh NBID for callers (such as the ordered
// path-addressed editor style) that need transaction-local node identity
// without exposing it to their own caller.
func (t *Transaction) AllocateNBID() NBID {
	id := t.nextAuto
	t.nextAuto++
	return id
}

func (t *Transaction) eq(a, b string) bool {
	if t.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// Get returns the live branch for id, if any.
func (t *Transaction) Get(id NBID) (*Branch, bool) {
	b, ok := t.nodes[id]
	return b, ok
}

// Children returns id's live children, name-sorted for deterministic
// iteration (dot-graph dumps, tests).
func (t *Transaction) Children(id NBID) []*Branch {
	var out []*Branch
	for _, b := range t.nodes {
		if b.Parent == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ChildNamed returns the live child of parent with the given name, if any.
func (t *Transaction) ChildNamed(parent NBID, name string) (*Branch, bool) {
	for _, b := range t.nodes {
		if b.Parent == parent && t.eq(b.Name, name) {
			return b, true
		}
	}
	return nil, false
}

// NameFree reports whether parent has no live child named name.
func (t *Transaction) NameFree(parent NBID, name string) bool {
	_, found := t.ChildNamed(parent, name)
	return !found
}

// Add creates a new live node-branch. The caller (editor) is responsible
// for precondition checks (spec §4.2); Add itself only enforces the
// structural invariants that make the tree a tree.
func (t *Transaction) Add(id, parent NBID, name string, content Content, createdInTxn bool) error {
	if _, exists := t.nodes[id]; exists {
		return wireerr.New(wireerr.Conflict, "duplicate NBID")
	}
	if parent != NoParent {
		if _, ok := t.nodes[parent]; !ok {
			return wireerr.New(wireerr.PreconditionFailed, "parent does not exist")
		}
		if t.nodes[parent].Content.Kind != KindDir {
			return wireerr.New(wireerr.PreconditionFailed, "parent is not a directory")
		}
	}
	if !t.NameFree(parent, name) {
		return wireerr.New(wireerr.PreconditionFailed, "name already exists in parent")
	}
	t.nodes[id] = &Branch{ID: id, Parent: parent, Name: name, Content: content, Flags: Flags{CreatedInTxn: createdInTxn}}
	delete(t.deletedInTxn, id)
	return nil
}

// AddUnchecked inserts a node-branch without enforcing parent-exists,
// parent-is-a-directory, or name-collision invariants. The Style B
// operation family is "independent of ordering ... intermediate states
// need not form a valid tree" (spec §4.2): a child can legitimately be
// added before its parent. Only the final Validate at complete catches a
// structurally broken result.
func (t *Transaction) AddUnchecked(id, parent NBID, name string, content Content, createdInTxn bool) error {
	if _, exists := t.nodes[id]; exists {
		return wireerr.New(wireerr.Conflict, "duplicate NBID")
	}
	t.nodes[id] = &Branch{ID: id, Parent: parent, Name: name, Content: content, Flags: Flags{CreatedInTxn: createdInTxn}}
	delete(t.deletedInTxn, id)
	return nil
}

// Move relocates id to (newParent, newName), preserving its NBID -- the
// identity half of spec §4.2's move semantics (property 9).
func (t *Transaction) Move(id, newParent NBID, newName string) error {
	b, ok := t.nodes[id]
	if !ok {
		return wireerr.New(wireerr.PreconditionFailed, "node does not exist")
	}
	if newParent != NoParent {
		np, ok := t.nodes[newParent]
		if !ok {
			return wireerr.New(wireerr.PreconditionFailed, "new parent does not exist")
		}
		if np.Content.Kind != KindDir {
			return wireerr.New(wireerr.PreconditionFailed, "new parent is not a directory")
		}
	}
	if !(newParent == b.Parent && t.eq(newName, b.Name)) && !t.NameFree(newParent, newName) {
		return wireerr.New(wireerr.PreconditionFailed, "name already exists in new parent")
	}
	if t.isAncestor(id, newParent) {
		return wireerr.New(wireerr.Conflict, "move would create a cycle")
	}
	b.Parent = newParent
	b.Name = newName
	b.Flags.Modified = true
	return nil
}

func (t *Transaction) isAncestor(id, maybeDescendant NBID) bool {
	cur := maybeDescendant
	for cur != NoParent {
		if cur == id {
			return true
		}
		b, ok := t.nodes[cur]
		if !ok {
			return false
		}
		cur = b.Parent
	}
	return false
}

// Delete recursively removes id and whatever is currently live under it
// -- spec §4.2's "rm deletes only nodes that are currently its children
// in the transaction" (property 10): a descendant moved out beforehand is
// untouched because it is no longer reachable from id by the time Delete
// walks the tree.
func (t *Transaction) Delete(id NBID) error {
	if _, ok := t.nodes[id]; !ok {
		return wireerr.New(wireerr.PreconditionFailed, "node does not exist")
	}
	if id == Root {
		return wireerr.New(wireerr.PreconditionFailed, "cannot delete the root")
	}
	var victims []NBID
	var collect func(NBID)
	collect = func(n NBID) {
		victims = append(victims, n)
		for _, c := range t.Children(n) {
			collect(c.ID)
		}
	}
	collect(id)
	for _, v := range victims {
		delete(t.nodes, v)
		t.deletedInTxn[v] = true
	}
	return nil
}

// DeleteUnchecked removes id (non-recursively, no live-node precondition)
// for the Style B "delete" op, which addresses NBIDs directly rather than
// walking the current tree shape.
func (t *Transaction) DeleteUnchecked(id NBID) error {
	if id == Root {
		return wireerr.New(wireerr.PreconditionFailed, "cannot delete the root")
	}
	delete(t.nodes, id)
	t.deletedInTxn[id] = true
	return nil
}

// SetContent replaces id's content (spec §4.2 "put").
func (t *Transaction) SetContent(id NBID, content Content) error {
	b, ok := t.nodes[id]
	if !ok {
		return wireerr.New(wireerr.PreconditionFailed, "node does not exist")
	}
	if b.Content.Kind != KindUnknown && content.Kind != KindUnknown && b.Content.Kind != content.Kind {
		return wireerr.New(wireerr.PreconditionFailed, "node kind is immutable once set")
	}
	b.Content = content
	b.Flags.Modified = true
	return nil
}

// SetContentUnchecked replaces id's content for the Style B "alter" op
// without the kind-immutability precondition check (alter supplies a full
// new content record; final Validate catches any resulting inconsistency).
func (t *Transaction) SetContentUnchecked(id NBID, content Content) error {
	b, ok := t.nodes[id]
	if !ok {
		return wireerr.New(wireerr.PreconditionFailed, "node does not exist")
	}
	b.Content = content
	b.Flags.Modified = true
	return nil
}

// Reparent changes id's parent and name with Move's checks; it is Move
// under another name. The editor's Style B "alter" op uses
// ReparentUnchecked and SetContentUnchecked instead.
func (t *Transaction) Reparent(id, newParent NBID, newName string) error {
	return t.Move(id, newParent, newName)
}

// ReparentUnchecked relocates id without enforcing parent-exists or
// name-collision invariants, for Style B's relaxed intermediate states.
func (t *Transaction) ReparentUnchecked(id, newParent NBID, newName string) error {
	b, ok := t.nodes[id]
	if !ok {
		return wireerr.New(wireerr.PreconditionFailed, "node does not exist")
	}
	b.Parent = newParent
	b.Name = newName
	b.Flags.Modified = true
	return nil
}

// Path computes id's full transaction path by walking the parent chain.
// Used for diagnostics, the debug graph dump, and by the Style B delete
// and alter callbacks to find a node's mixed-revision base entry; the edit
// algebra otherwise addresses nodes by NBID or by peg-path resolved
// externally.
func (t *Transaction) Path(id NBID) string {
	var parts []string
	cur := id
	for cur != Root && cur != NoParent {
		b, ok := t.nodes[cur]
		if !ok {
			break
		}
		parts = append([]string{b.Name}, parts...)
		cur = b.Parent
	}
	return strings.Join(parts, "/")
}

// Validate checks the spec §3/§4.2 final-state invariants: a rooted tree
// with no cycles, unique names per directory, kind-consistent content,
// and (via refResolves) every content reference resolvable.
func (t *Transaction) Validate(refResolves func(PegPath) bool) error {
	for id, b := range t.nodes {
		if id == Root {
			continue
		}
		parent, ok := t.nodes[b.Parent]
		if !ok {
			return wireerr.New(wireerr.Conflict, "node has no live parent: "+b.Name)
		}
		if parent.Content.Kind != KindDir {
			return wireerr.New(wireerr.Conflict, "parent is not a directory: "+b.Name)
		}
	}
	for id := range t.nodes {
		if t.hasCycle(id) {
			return wireerr.New(wireerr.Conflict, "cycle detected in transaction tree")
		}
	}
	byParentName := map[NBID]map[string]NBID{}
	for id, b := range t.nodes {
		if id == Root {
			continue
		}
		key := strings.ToLower(b.Name)
		if !t.caseInsensitive {
			key = b.Name
		}
		m, ok := byParentName[b.Parent]
		if !ok {
			m = map[string]NBID{}
			byParentName[b.Parent] = m
		}
		if other, dup := m[key]; dup && other != id {
			return wireerr.New(wireerr.Conflict, "duplicate name in directory: "+b.Name)
		}
		m[key] = id
	}
	for _, b := range t.nodes {
		if err := b.Content.Validate(); err != nil {
			return err
		}
		if b.Content.hasRef() && (refResolves == nil || !refResolves(b.Content.Ref)) {
			return wireerr.New(wireerr.Conflict, "content reference does not resolve: "+b.Name)
		}
		if b.Content.Kind == KindFile && b.Content.Checksum == nil && b.Content.Stream == nil {
			if refResolves == nil || !refResolves(b.Content.Ref) {
				return wireerr.New(wireerr.Conflict, "file has no checksum and its reference does not resolve: "+b.Name)
			}
		}
	}
	return nil
}

func (t *Transaction) hasCycle(start NBID) bool {
	visited := map[NBID]bool{}
	cur := start
	for {
		if cur == Root || cur == NoParent {
			return false
		}
		if visited[cur] {
			return true
		}
		visited[cur] = true
		b, ok := t.nodes[cur]
		if !ok {
			return false
		}
		cur = b.Parent
	}
}
