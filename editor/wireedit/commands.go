// Package wireedit bridges an editor.Editor across a network connection:
// it turns each editor.Callbacks call into a wire command/response round
// trip on the driver side, and turns incoming wire commands back into
// editor.Callbacks calls on the receiving side (spec §2: "when operating
// across a network, the driver side encodes each call through the codec
// and the receiving side decodes and re-dispatches it").
package wireedit

import "github.com/rcowham/svnedit/tree"

// Command names, one per operation (spec §4.1 "Command dispatch").
const (
	CmdMk       = "mk"
	CmdCp       = "cp"
	CmdMv       = "mv"
	CmdRes      = "res"
	CmdRm       = "rm"
	CmdPut      = "put"
	CmdAdd      = "add"
	CmdCopyOne  = "copy-one"
	CmdCopyTree = "copy-tree"
	CmdDelete   = "delete"
	CmdAlter    = "alter"
	CmdComplete = "complete"
	CmdAbort    = "abort"
)

func kindWord(k tree.Kind) string { return k.String() }

func kindFromWord(w string) tree.Kind {
	switch w {
	case "dir":
		return tree.KindDir
	case "file":
		return tree.KindFile
	case "symlink":
		return tree.KindSymlink
	default:
		return tree.KindUnknown
	}
}
