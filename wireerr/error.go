package wireerr

import "fmt"

// Record is the wire shape of one frame in a causal chain: (code, message,
// source-file, line). It is the over-the-wire tuple described in spec §4.1
// ("A failure payload is a list of per-frame error records") and §6
// ("Error wire record").
type Record struct {
	Code    uint64
	Message string
	File    string
	Line    uint64
}

// Error is this module's error type. It carries a Kind from the closed
// enumeration, a numeric wire code, a message, optional diagnostic
// source location, and an optional wrapped cause forming a causal chain.
//
// Error implements the standard Unwrap contract so errors.Is/errors.As work
// against both Kind (via Is) and concrete *Error values.
type Error struct {
	Kind    Kind
	Code    uint64
	Message string
	File    string
	Line    uint64
	cause   error
}

// New creates a fresh, un-wrapped Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: kind.DefaultCode(), Message: message}
}

// NewAt is New plus a diagnostic source location, the way a handler near
// the origin of a failure would record it before it propagates.
func NewAt(kind Kind, message, file string, line uint64) *Error {
	return &Error{Kind: kind, Code: kind.DefaultCode(), Message: message, File: file, Line: line}
}

// Wrap attaches a new outer frame to an existing cause, preserving the
// chain the way spec §7 requires ("each wrapping layer may attach
// additional context").
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Code: kind.DefaultCode(), Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the causal chain to the standard errors package.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is(err, wireerr.IOError) work by matching a bare Kind
// target against e.Kind; an *Error target matches when both its Kind and
// Code are equal to e's.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	if ok {
		return e.Kind == k
	}
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind && e.Code == other.Code
}

// Chain flattens the causal chain into wire records, outermost first and
// innermost last -- matching the wire order in spec §4.1/§8 S2, where the
// outer wrapping error is listed before the cause it wraps.
func Chain(err error) []Record {
	var records []Record
	for err != nil {
		if e, ok := err.(*Error); ok {
			records = append(records, Record{Code: e.Code, Message: e.Message, File: e.File, Line: e.Line})
			err = e.cause
			continue
		}
		records = append(records, Record{Message: err.Error()})
		break
	}
	return records
}

// FromRecords rebuilds an *Error chain from wire records in wire order
// (innermost last, i.e. reversed from construction order). kindOf maps a
// wire code back to a Kind; codes it doesn't recognize become a generic
// IOError-kinded frame carrying the original code so no information is
// lost.
func FromRecords(records []Record, kindOf func(code uint64) Kind) *Error {
	if len(records) == 0 {
		return nil
	}
	// records are innermost-last; build from the tail (innermost) outward.
	var cur *Error
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		k := kindOf(r.Code)
		next := &Error{Kind: k, Code: r.Code, Message: r.Message, File: r.File, Line: r.Line}
		next.cause = cur
		cur = next
	}
	return cur
}

// KindFromCode maps a wire code back to its Kind using the DefaultCode
// assignment. Codes outside any known kind's block resolve to IOError.
func KindFromCode(code uint64) Kind {
	for k := IOError; k <= Cancelled; k++ {
		base := k.DefaultCode()
		if code >= base && code < base+100 {
			return k
		}
	}
	return IOError
}
