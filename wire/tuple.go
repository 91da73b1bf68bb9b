package wire

import (
	"fmt"
	"strings"

	"github.com/rcowham/svnedit/wireerr"
)

// Revnum is a revision number. InvalidRevnum is the sentinel meaning "no
// revision" -- used both as the ordinary value for an optional 'r' slot
// and, outside an optional block, as a programmer error if ever written
// (spec §4.1, tuple language table).
type Revnum uint64

// InvalidRevnum is never a legal committed revision.
const InvalidRevnum Revnum = ^Revnum(0)

// Valid reports whether r is a real revision number.
func (r Revnum) Valid() bool { return r != InvalidRevnum }

// Design decision (documented in DESIGN.md): within an optional block
// `[...]`, once one element is omitted, every element after it in that
// block must also be omitted -- the block encodes a present-prefix, not
// arbitrary per-slot presence. This keeps positional decoding unambiguous
// without inventing a presence-tag wire format the source grammar doesn't
// have.

// WriteTuple encodes args against format and writes the resulting list
// item. format uses the mini-language from spec §4.1: n r s c w l, and
// grouping via ( ) and optional blocks via [ ]. A '(' or '[' group
// consumes exactly one arg, itself a []interface{} holding the group's
// own arguments.
func (c *Conn) WriteTuple(format string, args ...interface{}) error {
	items, used, err := buildSeq(format, args)
	if err != nil {
		return err
	}
	if used != len(args) {
		panic(fmt.Sprintf("wire: WriteTuple format %q consumed %d of %d args", format, used, len(args)))
	}
	return c.WriteItem(List(items...))
}

// ReadTuple reads one list item from the wire and parses it against
// format, per spec §4.1.
func (c *Conn) ReadTuple(format string) ([]interface{}, error) {
	it, err := c.ReadItem()
	if err != nil {
		return nil, err
	}
	return ParseTuple(it, format)
}

// ParseTuple parses an already-decoded list item against format. Exported
// so command payload lists (already read by the dispatch loop) can be
// parsed without a further wire round trip.
func ParseTuple(it Item, format string) ([]interface{}, error) {
	if it.Kind != KindList {
		return nil, wireerr.New(wireerr.MalformedData, "expected a list for tuple")
	}
	vals, used, err := parseSeq(format, it.List)
	if err != nil {
		return nil, err
	}
	if used != len(it.List) {
		return nil, wireerr.New(wireerr.MalformedData, "tuple has more elements than format describes")
	}
	return vals, nil
}

func findMatching(format string, open int, openCh, closeCh byte) int {
	depth := 0
	for i := open; i < len(format); i++ {
		switch format[i] {
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// buildSeq writes a flat (non-optional, non-grouped-recursion-entry)
// sequence of format atoms/groups, consuming args in lockstep. Returns
// the encoded items and how many args were consumed.
func buildSeq(format string, args []interface{}) ([]Item, int, error) {
	var items []Item
	argIdx := 0
	for fi := 0; fi < len(format); fi++ {
		ch := format[fi]
		switch ch {
		case '(':
			closeIdx := findMatching(format, fi, '(', ')')
			if closeIdx < 0 {
				panic("wire: unbalanced ( in format " + format)
			}
			if argIdx >= len(args) {
				panic("wire: not enough args for format " + format)
			}
			sub, ok := args[argIdx].([]interface{})
			if !ok {
				panic(fmt.Sprintf("wire: arg %d for '(' group must be []interface{}, got %T", argIdx, args[argIdx]))
			}
			subItems, used, err := buildSeq(format[fi+1:closeIdx], sub)
			if err != nil {
				return nil, 0, err
			}
			if used != len(sub) {
				panic(fmt.Sprintf("wire: group format %q consumed %d of %d args", format[fi+1:closeIdx], used, len(sub)))
			}
			items = append(items, List(subItems...))
			argIdx++
			fi = closeIdx
		case '[':
			closeIdx := findMatching(format, fi, '[', ']')
			if closeIdx < 0 {
				panic("wire: unbalanced [ in format " + format)
			}
			if argIdx >= len(args) {
				panic("wire: not enough args for format " + format)
			}
			sub, ok := args[argIdx].([]interface{})
			if !ok {
				panic(fmt.Sprintf("wire: arg %d for '[' group must be []interface{}, got %T", argIdx, args[argIdx]))
			}
			optItems, err := buildOptional(format[fi+1:closeIdx], sub)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, List(optItems...))
			argIdx++
			fi = closeIdx
		default:
			if argIdx >= len(args) {
				panic("wire: not enough args for format " + format)
			}
			item, err := buildAtom(ch, args[argIdx])
			if err != nil {
				return nil, 0, err
			}
			items = append(items, item)
			argIdx++
		}
	}
	return items, argIdx, nil
}

func buildOptional(format string, args []interface{}) ([]Item, error) {
	if len(format) != len(args) {
		panic(fmt.Sprintf("wire: optional block format %q needs %d args, got %d", format, len(format), len(args)))
	}
	var items []Item
	omittedSeen := false
	for i := 0; i < len(format); i++ {
		present, val := optionalPresent(format[i], args[i])
		if !present {
			omittedSeen = true
			continue
		}
		if omittedSeen {
			panic("wire: optional block has a present element after an omitted one: " + format)
		}
		item, err := buildAtom(format[i], val)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func optionalPresent(ch byte, arg interface{}) (bool, interface{}) {
	switch ch {
	case 'n':
		p, _ := arg.(*uint64)
		if p == nil {
			return false, nil
		}
		return true, *p
	case 'r':
		v, ok := arg.(Revnum)
		if !ok || !v.Valid() {
			return false, nil
		}
		return true, v
	case 's':
		p, _ := arg.(*[]byte)
		if p == nil {
			return false, nil
		}
		return true, *p
	case 'c', 'w':
		p, _ := arg.(*string)
		if p == nil {
			return false, nil
		}
		return true, *p
	default:
		panic("wire: invalid optional format char " + string(ch))
	}
}

func buildAtom(ch byte, arg interface{}) (Item, error) {
	switch ch {
	case 'n':
		v, ok := arg.(uint64)
		if !ok {
			panic(fmt.Sprintf("wire: 'n' expects uint64, got %T", arg))
		}
		return Number(v), nil
	case 'r':
		v, ok := arg.(Revnum)
		if !ok {
			panic(fmt.Sprintf("wire: 'r' expects wire.Revnum, got %T", arg))
		}
		if !v.Valid() {
			panic("wire: writing InvalidRevnum outside an optional block")
		}
		return Number(uint64(v)), nil
	case 's':
		v, ok := arg.([]byte)
		if !ok {
			panic(fmt.Sprintf("wire: 's' expects []byte, got %T", arg))
		}
		if v == nil {
			panic("wire: writing nil []byte outside an optional block")
		}
		return String(v), nil
	case 'c':
		v, ok := arg.(string)
		if !ok {
			panic(fmt.Sprintf("wire: 'c' expects string, got %T", arg))
		}
		if strings.IndexByte(v, 0) >= 0 {
			return Item{}, wireerr.New(wireerr.MalformedData, "c-string argument contains a NUL byte")
		}
		return String([]byte(v)), nil
	case 'w':
		v, ok := arg.(string)
		if !ok {
			panic(fmt.Sprintf("wire: 'w' expects string, got %T", arg))
		}
		return Word(v), nil
	case 'l':
		v, ok := arg.(Item)
		if !ok {
			panic(fmt.Sprintf("wire: 'l' expects wire.Item, got %T", arg))
		}
		return v, nil
	default:
		panic("wire: invalid format char " + string(ch))
	}
}

func parseSeq(format string, items []Item) ([]interface{}, int, error) {
	var vals []interface{}
	idx := 0
	for fi := 0; fi < len(format); fi++ {
		ch := format[fi]
		switch ch {
		case '(':
			closeIdx := findMatching(format, fi, '(', ')')
			if closeIdx < 0 {
				panic("wire: unbalanced ( in format " + format)
			}
			if idx >= len(items) {
				return nil, 0, wireerr.New(wireerr.MalformedData, "tuple has fewer elements than format requires")
			}
			if items[idx].Kind != KindList {
				return nil, 0, wireerr.New(wireerr.MalformedData, "expected nested list for '(' group")
			}
			subVals, used, err := parseSeq(format[fi+1:closeIdx], items[idx].List)
			if err != nil {
				return nil, 0, err
			}
			if used != len(items[idx].List) {
				return nil, 0, wireerr.New(wireerr.MalformedData, "nested list has more elements than format describes")
			}
			vals = append(vals, subVals)
			idx++
			fi = closeIdx
		case '[':
			closeIdx := findMatching(format, fi, '[', ']')
			if closeIdx < 0 {
				panic("wire: unbalanced [ in format " + format)
			}
			if idx >= len(items) {
				return nil, 0, wireerr.New(wireerr.MalformedData, "tuple has fewer elements than format requires")
			}
			if items[idx].Kind != KindList {
				return nil, 0, wireerr.New(wireerr.MalformedData, "expected nested list for '[' optional group")
			}
			optVals, err := parseOptional(format[fi+1:closeIdx], items[idx].List)
			if err != nil {
				return nil, 0, err
			}
			vals = append(vals, optVals)
			idx++
			fi = closeIdx
		default:
			if idx >= len(items) {
				return nil, 0, wireerr.New(wireerr.MalformedData, "tuple has fewer elements than format requires")
			}
			val, err := parseAtom(ch, items[idx])
			if err != nil {
				return nil, 0, err
			}
			vals = append(vals, val)
			idx++
		}
	}
	return vals, idx, nil
}

func parseOptional(format string, items []Item) ([]interface{}, error) {
	if len(items) > len(format) {
		return nil, wireerr.New(wireerr.MalformedData, "optional block has more elements than format describes")
	}
	vals := make([]interface{}, len(format))
	for i := 0; i < len(format); i++ {
		if i >= len(items) {
			vals[i] = absentOptional(format[i])
			continue
		}
		val, err := parseAtom(format[i], items[i])
		if err != nil {
			return nil, err
		}
		vals[i] = presentOptional(format[i], val)
	}
	return vals, nil
}

func absentOptional(ch byte) interface{} {
	switch ch {
	case 'n':
		return (*uint64)(nil)
	case 'r':
		return InvalidRevnum
	case 's':
		return (*[]byte)(nil)
	case 'c', 'w':
		return (*string)(nil)
	default:
		panic("wire: invalid optional format char " + string(ch))
	}
}

func presentOptional(ch byte, val interface{}) interface{} {
	switch ch {
	case 'n':
		v := val.(uint64)
		return &v
	case 'r':
		return val.(Revnum)
	case 's':
		v := val.([]byte)
		return &v
	case 'c', 'w':
		v := val.(string)
		return &v
	default:
		panic("wire: invalid optional format char " + string(ch))
	}
}

func parseAtom(ch byte, item Item) (interface{}, error) {
	switch ch {
	case 'n':
		if item.Kind != KindNumber {
			return nil, wireerr.New(wireerr.MalformedData, "expected number for 'n'")
		}
		return item.Num, nil
	case 'r':
		if item.Kind != KindNumber {
			return nil, wireerr.New(wireerr.MalformedData, "expected number for 'r'")
		}
		return Revnum(item.Num), nil
	case 's':
		if item.Kind != KindString {
			return nil, wireerr.New(wireerr.MalformedData, "expected string for 's'")
		}
		return item.Str, nil
	case 'c':
		if item.Kind != KindString {
			return nil, wireerr.New(wireerr.MalformedData, "expected string for 'c'")
		}
		for _, b := range item.Str {
			if b == 0 {
				return nil, wireerr.New(wireerr.MalformedData, "c-string contains a NUL byte")
			}
		}
		return string(item.Str), nil
	case 'w':
		if item.Kind != KindWord {
			return nil, wireerr.New(wireerr.MalformedData, "expected word for 'w'")
		}
		return item.Word, nil
	case 'l':
		return item, nil
	default:
		panic("wire: invalid format char " + string(ch))
	}
}
