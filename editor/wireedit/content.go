package wireedit

import (
	"sort"

	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
)

// encodeContent turns a tree.Content into a self-contained wire.Item list:
// (kind-word ref-rev ref-path props checksum stream target). Properties
// are flattened to a list of (key value) string pairs since the item
// language has no native map; keys are strings, not words, as property
// names may carry bytes outside the word grammar.
func encodeContent(c tree.Content) wire.Item {
	keys := make([]string, 0, len(c.Props))
	for k := range c.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]wire.Item, 0, len(keys))
	for _, k := range keys {
		props = append(props, wire.List(wire.String([]byte(k)), wire.String(c.Props[k])))
	}
	return wire.List(
		wire.Word(kindWord(c.Kind)),
		wire.Number(uint64(c.Ref.Rev)),
		wire.String([]byte(c.Ref.Path)),
		wire.List(props...),
		wire.String(c.Checksum),
		wire.String(c.Stream),
		wire.String([]byte(c.Target)),
	)
}

func decodeContent(it wire.Item) tree.Content {
	if it.Kind != wire.KindList || len(it.List) != 7 {
		return tree.Content{}
	}
	props := map[string][]byte{}
	for _, pair := range it.List[3].List {
		if pair.Kind == wire.KindList && len(pair.List) == 2 {
			props[string(pair.List[0].Str)] = pair.List[1].Str
		}
	}
	if len(props) == 0 {
		props = nil
	}
	c := tree.Content{
		Kind: kindFromWord(it.List[0].Word),
		Ref: tree.PegPath{
			Rev:  wire.Revnum(it.List[1].Num),
			Path: string(it.List[2].Str),
		},
		Props:  props,
		Target: string(it.List[6].Str),
	}
	if len(it.List[4].Str) > 0 {
		c.Checksum = it.List[4].Str
	}
	if len(it.List[5].Str) > 0 {
		c.Stream = it.List[5].Str
	}
	return c
}

// encodePegPath/decodePegPath: (rev path).
func encodePegPath(p tree.PegPath) wire.Item {
	return wire.List(wire.Number(uint64(p.Rev)), wire.String([]byte(p.Path)))
}

func decodePegPath(it wire.Item) tree.PegPath {
	return tree.PegPath{Rev: wire.Revnum(it.List[0].Num), Path: string(it.List[1].Str)}
}

// encodeTxnPath/decodeTxnPath: (anchor-peg-path suffix).
func encodeTxnPath(tp editor.TxnPath) wire.Item {
	return wire.List(encodePegPath(tp.Anchor), wire.String([]byte(tp.Suffix)))
}

func decodeTxnPath(it wire.Item) editor.TxnPath {
	return editor.TxnPath{Anchor: decodePegPath(it.List[0]), Suffix: string(it.List[1].Str)}
}
