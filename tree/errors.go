package tree

import "github.com/rcowham/svnedit/wireerr"

func errKindMismatch(k Kind, msg string) error {
	return wireerr.New(wireerr.Conflict, k.String()+": "+msg)
}
