package wireedit

import (
	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/rcowham/svnedit/wireerr"
)

func malformed(what string) error {
	return wireerr.New(wireerr.MalformedData, "malformed "+what+" payload")
}

func unsupportedOp(name string) error {
	return wireerr.New(wireerr.PreconditionFailed, "operation not supported by this edit session: "+name)
}

// cmdErr wraps a business-logic error (precondition failure, conflict,
// out-of-date, ...) as a CmdErr so RunCommandLoop treats it as a
// recoverable per-command failure rather than poisoning the connection
// (spec §4.1: a command failure reports a causal chain but the session
// continues).
func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	return wireerr.Wrap(wireerr.CmdErr, "command failed", err)
}

// NewServerTable builds the receiving side's command dispatch table: each
// entry decodes its payload and re-dispatches into cb, the way a local
// TreeCallbacks set is installed when this process owns the backend.
func NewServerTable(cb editor.Callbacks) wire.CommandTable {
	return wire.CommandTable{
		{Name: CmdMk, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 3 {
				return nil, malformed("mk")
			}
			if cb.Mk == nil {
				return nil, cmdErr(unsupportedOp("mk"))
			}
			parent := decodeTxnPath(p.List[0])
			name := string(p.List[1].Str)
			kind := kindFromWord(p.List[2].Word)
			return nil, cmdErr(cb.Mk(parent, name, kind))
		}},
		{Name: CmdCp, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 3 {
				return nil, malformed("cp")
			}
			if cb.Cp == nil {
				return nil, cmdErr(unsupportedOp("cp"))
			}
			from := decodePegPath(p.List[0])
			parent := decodeTxnPath(p.List[1])
			name := string(p.List[2].Str)
			return nil, cmdErr(cb.Cp(from, parent, name))
		}},
		{Name: CmdMv, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 3 {
				return nil, malformed("mv")
			}
			if cb.Mv == nil {
				return nil, cmdErr(unsupportedOp("mv"))
			}
			from := decodePegPath(p.List[0])
			newParent := decodeTxnPath(p.List[1])
			newName := string(p.List[2].Str)
			return nil, cmdErr(cb.Mv(from, newParent, newName))
		}},
		{Name: CmdRes, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 3 {
				return nil, malformed("res")
			}
			if cb.Res == nil {
				return nil, cmdErr(unsupportedOp("res"))
			}
			from := decodePegPath(p.List[0])
			parent := decodeTxnPath(p.List[1])
			name := string(p.List[2].Str)
			return nil, cmdErr(cb.Res(from, parent, name))
		}},
		{Name: CmdRm, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 1 {
				return nil, malformed("rm")
			}
			if cb.Rm == nil {
				return nil, cmdErr(unsupportedOp("rm"))
			}
			return nil, cmdErr(cb.Rm(decodeTxnPath(p.List[0])))
		}},
		{Name: CmdPut, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 2 {
				return nil, malformed("put")
			}
			if cb.Put == nil {
				return nil, cmdErr(unsupportedOp("put"))
			}
			loc := decodeTxnPath(p.List[0])
			content := decodeContent(p.List[1])
			return nil, cmdErr(cb.Put(loc, content))
		}},
		{Name: CmdAdd, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 5 {
				return nil, malformed("add")
			}
			if cb.Add == nil {
				return nil, cmdErr(unsupportedOp("add"))
			}
			id := tree.NBID(p.List[0].Num)
			kind := kindFromWord(p.List[1].Word)
			parent := tree.NBID(p.List[2].Num)
			name := string(p.List[3].Str)
			content := decodeContent(p.List[4])
			return nil, cmdErr(cb.Add(id, kind, parent, name, content))
		}},
		{Name: CmdCopyOne, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 6 {
				return nil, malformed("copy-one")
			}
			if cb.CopyOne == nil {
				return nil, cmdErr(unsupportedOp("copy-one"))
			}
			id := tree.NBID(p.List[0].Num)
			srcRev := wire.Revnum(p.List[1].Num)
			srcID := tree.NBID(p.List[2].Num)
			parent := tree.NBID(p.List[3].Num)
			name := string(p.List[4].Str)
			content := decodeContent(p.List[5])
			return nil, cmdErr(cb.CopyOne(id, srcRev, srcID, parent, name, content))
		}},
		{Name: CmdCopyTree, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 4 {
				return nil, malformed("copy-tree")
			}
			if cb.CopyTree == nil {
				return nil, cmdErr(unsupportedOp("copy-tree"))
			}
			srcRev := wire.Revnum(p.List[0].Num)
			srcID := tree.NBID(p.List[1].Num)
			parent := tree.NBID(p.List[2].Num)
			name := string(p.List[3].Str)
			return nil, cmdErr(cb.CopyTree(srcRev, srcID, parent, name))
		}},
		{Name: CmdDelete, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 2 {
				return nil, malformed("delete")
			}
			if cb.Delete == nil {
				return nil, cmdErr(unsupportedOp("delete"))
			}
			sinceRev := wire.Revnum(p.List[0].Num)
			id := tree.NBID(p.List[1].Num)
			return nil, cmdErr(cb.Delete(sinceRev, id))
		}},
		{Name: CmdAlter, Handler: func(_ interface{}, p wire.Item) ([]wire.Item, error) {
			if len(p.List) != 6 {
				return nil, malformed("alter")
			}
			if cb.Alter == nil {
				return nil, cmdErr(unsupportedOp("alter"))
			}
			sinceRev := wire.Revnum(p.List[0].Num)
			id := tree.NBID(p.List[1].Num)
			newParent := tree.NBID(p.List[2].Num)
			newName := string(p.List[3].Str)
			var content *tree.Content
			if p.List[4].Num != 0 {
				c := decodeContent(p.List[5])
				content = &c
			}
			return nil, cmdErr(cb.Alter(sinceRev, id, newParent, newName, content))
		}},
		{Name: CmdComplete, Terminal: true, Handler: func(_ interface{}, _ wire.Item) ([]wire.Item, error) {
			if cb.Complete == nil {
				return nil, cmdErr(unsupportedOp("complete"))
			}
			return nil, cmdErr(cb.Complete())
		}},
		{Name: CmdAbort, Terminal: true, Handler: func(_ interface{}, _ wire.Item) ([]wire.Item, error) {
			if cb.Abort == nil {
				return nil, cmdErr(unsupportedOp("abort"))
			}
			return nil, cmdErr(cb.Abort())
		}},
	}
}
