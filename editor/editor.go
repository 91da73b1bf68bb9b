// Package editor implements the tree-edit protocol (spec §2/§4): a state
// machine that dispatches the ordered, path-addressed operations (mk, cp,
// mv, res, rm, put) and the independent, NBID-addressed operations (add,
// copy-one, copy-tree, delete, alter) through a pluggable callback table,
// the way the teacher's node/journal layer dispatched git fast-import
// commands through a handler per command type.
//
// Editor itself only owns protocol state (open/completed/aborted) and
// dispatch; TreeCallbacks is the canonical in-process implementation that
// actually mutates a tree.Transaction against a repo.Backend. A driver
// talking to a remote peer instead installs callbacks that encode each
// call over the wire codec (see the editor/wireedit subpackage).
package editor

import (
	"github.com/rcowham/svnedit/tree"
	"github.com/rcowham/svnedit/wire"
	"github.com/rcowham/svnedit/wireerr"
)

// State is the edit session's lifecycle state (spec §2: "An edit session
// has three states: open, completed, aborted").
type State int

const (
	StateOpen State = iota
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "open"
	}
}

// CancelFunc is polled at well-defined points during dispatch (spec §2
// "cancellation predicates polled at well-defined points"). A non-nil
// error aborts the edit.
type CancelFunc func() error

// Callbacks is the capability set an edit session is parametric over
// (spec §2: "the driver and the receiver agree on a capability set; a
// capability absent from the table means that operation is
// unsupported"). A nil field means "unsupported" -- calling the
// corresponding Editor method returns PreconditionFailed rather than
// panicking, since whether a given peer supports an operation is a
// runtime negotiation, not a programmer error.
type Callbacks struct {
	Mk  func(parent TxnPath, name string, kind tree.Kind) error
	Cp  func(from tree.PegPath, parent TxnPath, name string) error
	Mv  func(from tree.PegPath, newParent TxnPath, newName string) error
	Res func(from tree.PegPath, parent TxnPath, name string) error
	Rm  func(loc TxnPath) error
	Put func(loc TxnPath, content tree.Content) error

	Add      func(id tree.NBID, kind tree.Kind, parent tree.NBID, name string, content tree.Content) error
	CopyOne  func(id tree.NBID, srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string, content tree.Content) error
	CopyTree func(srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string) error
	Delete   func(sinceRev wire.Revnum, id tree.NBID) error
	Alter    func(sinceRev wire.Revnum, id tree.NBID, newParent tree.NBID, newName string, content *tree.Content) error

	Complete func() error
	Abort    func() error
}

// Editor dispatches edit operations through a Callbacks table while
// enforcing the session state machine and cancellation polling common to
// both operation styles (spec §2).
type Editor struct {
	state  State
	cb     Callbacks
	cancel CancelFunc
}

// Option configures an Editor at construction.
type Option func(*Editor)

// WithCancel installs a cancellation predicate polled before each op.
func WithCancel(fn CancelFunc) Option {
	return func(e *Editor) { e.cancel = fn }
}

// New creates an Editor in the open state.
func New(cb Callbacks, opts ...Option) *Editor {
	e := &Editor{cb: cb}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the session's current lifecycle state.
func (e *Editor) State() State { return e.state }

func unsupported(op string) error {
	return wireerr.New(wireerr.PreconditionFailed, "operation not supported by this edit session: "+op)
}

// preOp enforces the state machine (spec §2: "In the completed state
// further operations fail with EDIT_FINISHED; in the aborted state they
// are no-ops returning EDIT_ABORTED") and polls the cancellation
// predicate, aborting the session if it fires.
func (e *Editor) preOp() error {
	switch e.state {
	case StateCompleted:
		return wireerr.New(wireerr.EditFinished, "edit session already completed")
	case StateAborted:
		return wireerr.New(wireerr.EditAborted, "edit session already aborted")
	}
	if e.cancel != nil {
		if err := e.cancel(); err != nil {
			e.state = StateAborted
			return err
		}
	}
	return nil
}

func (e *Editor) Mk(parent TxnPath, name string, kind tree.Kind) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Mk == nil {
		return unsupported("mk")
	}
	return e.cb.Mk(parent, name, kind)
}

func (e *Editor) Cp(from tree.PegPath, parent TxnPath, name string) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Cp == nil {
		return unsupported("cp")
	}
	return e.cb.Cp(from, parent, name)
}

func (e *Editor) Mv(from tree.PegPath, newParent TxnPath, newName string) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Mv == nil {
		return unsupported("mv")
	}
	return e.cb.Mv(from, newParent, newName)
}

func (e *Editor) Res(from tree.PegPath, parent TxnPath, name string) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Res == nil {
		return unsupported("res")
	}
	return e.cb.Res(from, parent, name)
}

func (e *Editor) Rm(loc TxnPath) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Rm == nil {
		return unsupported("rm")
	}
	return e.cb.Rm(loc)
}

func (e *Editor) Put(loc TxnPath, content tree.Content) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Put == nil {
		return unsupported("put")
	}
	return e.cb.Put(loc, content)
}

func (e *Editor) Add(id tree.NBID, kind tree.Kind, parent tree.NBID, name string, content tree.Content) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Add == nil {
		return unsupported("add")
	}
	return e.cb.Add(id, kind, parent, name, content)
}

func (e *Editor) CopyOne(id tree.NBID, srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string, content tree.Content) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.CopyOne == nil {
		return unsupported("copy-one")
	}
	return e.cb.CopyOne(id, srcRev, srcID, parent, name, content)
}

func (e *Editor) CopyTree(srcRev wire.Revnum, srcID tree.NBID, parent tree.NBID, name string) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.CopyTree == nil {
		return unsupported("copy-tree")
	}
	return e.cb.CopyTree(srcRev, srcID, parent, name)
}

func (e *Editor) Delete(sinceRev wire.Revnum, id tree.NBID) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Delete == nil {
		return unsupported("delete")
	}
	return e.cb.Delete(sinceRev, id)
}

func (e *Editor) Alter(sinceRev wire.Revnum, id tree.NBID, newParent tree.NBID, newName string, content *tree.Content) error {
	if err := e.preOp(); err != nil {
		return err
	}
	if e.cb.Alter == nil {
		return unsupported("alter")
	}
	return e.cb.Alter(sinceRev, id, newParent, newName, content)
}

// Complete ends the session successfully, validating and publishing the
// accumulated edit (spec §2 "complete: ends the session, validating the
// final state").
func (e *Editor) Complete() error {
	if e.state == StateCompleted {
		return wireerr.New(wireerr.EditFinished, "edit session already completed")
	}
	if e.state == StateAborted {
		return wireerr.New(wireerr.EditAborted, "edit session already aborted")
	}
	if e.cb.Complete == nil {
		return unsupported("complete")
	}
	if err := e.cb.Complete(); err != nil {
		return err
	}
	e.state = StateCompleted
	return nil
}

// Abort discards the edit (spec §2). Idempotent: aborting an
// already-aborted session is a no-op, but aborting a completed one fails
// since completion has already taken effect.
func (e *Editor) Abort() error {
	if e.state == StateAborted {
		return nil
	}
	if e.state == StateCompleted {
		return wireerr.New(wireerr.EditFinished, "cannot abort a completed edit session")
	}
	e.state = StateAborted
	if e.cb.Abort != nil {
		return e.cb.Abort()
	}
	return nil
}
