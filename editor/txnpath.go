package editor

import (
	"strings"

	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wireerr"
)

// TxnPath addresses a location for the ordered, path-addressed operation
// style: a peg-path anchor identifying a pre-existing node-branch, plus an
// optional created-relpath suffix naming components created earlier in
// this same edit (spec §3 "Transaction-path").
type TxnPath struct {
	Anchor tree.PegPath
	Suffix string
}

// AtAnchor builds a TxnPath with no suffix, addressing the anchor itself.
func AtAnchor(anchor tree.PegPath) TxnPath {
	return TxnPath{Anchor: anchor}
}

// Under builds a TxnPath addressing relPath, created within this edit,
// under anchor.
func Under(anchor tree.PegPath, relPath string) TxnPath {
	return TxnPath{Anchor: anchor, Suffix: relPath}
}

func splitSuffix(suffix string) []string {
	suffix = strings.Trim(suffix, "/")
	if suffix == "" {
		return nil
	}
	return strings.Split(suffix, "/")
}

func errPathNotFound(msg string) error {
	return wireerr.New(wireerr.PathNotFound, msg)
}
