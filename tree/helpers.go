package tree

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
)

// Clone deep-copies the transaction, the way committing a revision freezes
// a snapshot and beginning a new transaction starts a fresh mutable copy
// of one.
func (t *Transaction) Clone() *Transaction {
	out := &Transaction{
		nodes:           make(map[NBID]*Branch, len(t.nodes)),
		nextAuto:        t.nextAuto,
		caseInsensitive: t.caseInsensitive,
		log:             t.log,
		deletedInTxn:    map[NBID]bool{},
	}
	for id, b := range t.nodes {
		nb := *b
		nb.Content = cloneContent(b.Content)
		out.nodes[id] = &nb
	}
	return out
}

func cloneContent(c Content) Content {
	out := c
	if c.Props != nil {
		out.Props = make(map[string][]byte, len(c.Props))
		for k, v := range c.Props {
			out.Props[k] = append([]byte(nil), v...)
		}
	}
	out.Checksum = append([]byte(nil), c.Checksum...)
	out.Stream = append([]byte(nil), c.Stream...)
	return out
}

// Walk visits every live node-branch, in an unspecified order.
func (t *Transaction) Walk(fn func(*Branch)) {
	for _, b := range t.nodes {
		fn(b)
	}
}

// ResolvePath walks from the root along path's components and returns the
// live NBID at that location, if any.
func (t *Transaction) ResolvePath(path string) (NBID, bool) {
	cur := Root
	path = strings.Trim(path, "/")
	if path == "" {
		return Root, true
	}
	for _, part := range strings.Split(path, "/") {
		b, ok := t.ChildNamed(cur, part)
		if !ok {
			return 0, false
		}
		cur = b.ID
	}
	return cur, true
}

// ContentHash produces an opaque equality token over a node's own content
// (kind, reference, props, checksum/stream, target) for OOD comparisons.
// Equal hashes mean "content did not change"; this is deliberately not a
// content-addressed hash of file bytes alone, since a property-only edit
// must also register as a change.
func ContentHash(c Content) string {
	h := sha1.New()
	fmt.Fprintf(h, "k=%d;refrev=%d;refpath=%s;target=%s;", c.Kind, c.Ref.Rev, c.Ref.Path, c.Target)
	h.Write(c.Checksum)
	h.Write(c.Stream)
	if len(c.Props) > 0 {
		keys := make([]string, 0, len(c.Props))
		for k := range c.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "p:%s=", k)
			h.Write(c.Props[k])
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
