package wireedit

import (
	"github.com/rcowham/svnedit/editor"
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
)

func boolNum(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// RemoteCallbacks builds an editor.Callbacks whose every method encodes
// the call as a command on conn, flushes, and blocks for the response --
// the driver-side half of operating the tree-edit protocol across a
// network connection (spec §2).
func RemoteCallbacks(conn *wire.Conn) editor.Callbacks {
	call := func(name string, payload wire.Item) ([]wire.Item, error) {
		if err := conn.WriteCommand(name, payload); err != nil {
			return nil, err
		}
		if err := conn.Flush(); err != nil {
			return nil, err
		}
		resp, err := conn.ReadResponse()
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, resp.Err
		}
		return resp.Payload.List, nil
	}

	return editor.Callbacks{
		Mk: func(parent editor.TxnPath, name string, kind tree.Kind) error {
			_, err := call(CmdMk, wire.List(encodeTxnPath(parent), wire.String([]byte(name)), wire.Word(kindWord(kind))))
			return err
		},
		Cp: func(from tree.PegPath, parent editor.TxnPath, name string) error {
			_, err := call(CmdCp, wire.List(encodePegPath(from), encodeTxnPath(parent), wire.String([]byte(name))))
			return err
		},
		Mv: func(from tree.PegPath, newParent editor.TxnPath, newName string) error {
			_, err := call(CmdMv, wire.List(encodePegPath(from), encodeTxnPath(newParent), wire.String([]byte(newName))))
			return err
		},
		Res: func(from tree.PegPath, parent editor.TxnPath, name string) error {
			_, err := call(CmdRes, wire.List(encodePegPath(from), encodeTxnPath(parent), wire.String([]byte(name))))
			return err
		},
		Rm: func(loc editor.TxnPath) error {
			_, err := call(CmdRm, wire.List(encodeTxnPath(loc)))
			return err
		},
		Put: func(loc editor.TxnPath, content tree.Content) error {
			_, err := call(CmdPut, wire.List(encodeTxnPath(loc), encodeContent(content)))
			return err
		},
		Add: func(id tree.NBID, kind tree.Kind, parent tree.NBID, name string, content tree.Content) error {
			_, err := call(CmdAdd, wire.List(
				wire.Number(uint64(id)), wire.Word(kindWord(kind)), wire.Number(uint64(parent)),
				wire.String([]byte(name)), encodeContent(content),
			))
			return err
		},
		CopyOne: func(id tree.NBID, srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string, content tree.Content) error {
			_, err := call(CmdCopyOne, wire.List(
				wire.Number(uint64(id)), wire.Number(uint64(srcRev)), wire.Number(uint64(srcID)),
				wire.Number(uint64(parent)), wire.String([]byte(name)), encodeContent(content),
			))
			return err
		},
		CopyTree: func(srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string) error {
			_, err := call(CmdCopyTree, wire.List(
				wire.Number(uint64(srcRev)), wire.Number(uint64(srcID)), wire.Number(uint64(parent)), wire.String([]byte(name)),
			))
			return err
		},
		Delete: func(sinceRev wire.Revnum, id tree.NBID) error {
			_, err := call(CmdDelete, wire.List(wire.Number(uint64(sinceRev)), wire.Number(uint64(id))))
			return err
		},
		Alter: func(sinceRev wire.Revnum, id tree.NBID, newParent tree.NBID, newName string, content *tree.Content) error {
			var c tree.Content
			has := content != nil
			if has {
				c = *content
			}
			_, err := call(CmdAlter, wire.List(
				wire.Number(uint64(sinceRev)), wire.Number(uint64(id)), wire.Number(uint64(newParent)),
				wire.String([]byte(newName)), wire.Number(boolNum(has)), encodeContent(c),
			))
			return err
		},
		Complete: func() error {
			_, err := call(CmdComplete, wire.List())
			return err
		},
		Abort: func() error {
			_, err := call(CmdAbort, wire.List())
			return err
		},
	}
}
