package wire

import (
	"github.com/rcowham/svnedit/wireerr"
)

// A command on the wire is `(word payload-list)`: a command name followed
// by its argument tuple (spec §4.1 "Command dispatch").
type Command struct {
	Name    string
	Payload Item // always KindList
}

// HandlerFunc processes one command's payload and returns the response
// payload items to report as success, or an error. Returning a
// *wireerr.Error of kind CmdErr reports its Cause as a recoverable
// per-command failure (the connection stays usable); any other error
// propagates out of RunCommandLoop and poisons the connection.
type HandlerFunc func(baton interface{}, payload Item) ([]Item, error)

// CommandEntry registers one command name's handler. Terminal marks a
// command whose success ends the dispatch loop (spec §4.1: "The loop
// exits when a terminal command succeeds").
type CommandEntry struct {
	Name    string
	Handler HandlerFunc
	Terminal bool
}

// CommandTable is an ordered set of command entries, looked up by name.
type CommandTable []CommandEntry

func (t CommandTable) lookup(name string) (CommandEntry, bool) {
	for _, e := range t {
		if e.Name == name {
			return e, true
		}
	}
	return CommandEntry{}, false
}

// ReadCommand reads one `(word payload-list)` item and splits it into a
// Command.
func (c *Conn) ReadCommand() (Command, error) {
	it, err := c.ReadItem()
	if err != nil {
		return Command{}, err
	}
	if it.Kind != KindList || len(it.List) != 2 || it.List[0].Kind != KindWord || it.List[1].Kind != KindList {
		return Command{}, c.poison(wireerr.New(wireerr.MalformedData, "malformed command"))
	}
	return Command{Name: it.List[0].Word, Payload: it.List[1]}, nil
}

// WriteCommand writes a `(word payload)` command item. payload must
// already be a KindList item (build it with wire.List(...)).
func (c *Conn) WriteCommand(name string, payload Item) error {
	return c.WriteItem(List(Word(name), payload))
}

// WriteSuccess writes a `(success (items...))` response.
func (c *Conn) WriteSuccess(items []Item) error {
	return c.WriteItem(List(Word("success"), List(items...)))
}

// WriteFailure writes a `(failure (records...))` response from a causal
// chain, outermost-first per spec §4.1/§8 S2.
func (c *Conn) WriteFailure(records []wireerr.Record) error {
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = List(Number(r.Code), String([]byte(r.Message)), String([]byte(r.File)), Number(r.Line))
	}
	return c.WriteItem(List(Word("failure"), List(items...)))
}

// Response is a decoded `(success payload)` or `(failure records)` item.
type Response struct {
	Success bool
	Payload Item       // valid when Success
	Err     *wireerr.Error // valid when !Success
}

// ReadResponse reads and classifies a response item.
func (c *Conn) ReadResponse() (Response, error) {
	it, err := c.ReadItem()
	if err != nil {
		return Response{}, err
	}
	if it.Kind != KindList || len(it.List) != 2 || it.List[0].Kind != KindWord || it.List[1].Kind != KindList {
		return Response{}, c.poison(wireerr.New(wireerr.MalformedData, "malformed response"))
	}
	switch it.List[0].Word {
	case "success":
		return Response{Success: true, Payload: it.List[1]}, nil
	case "failure":
		records := make([]wireerr.Record, 0, len(it.List[1].List))
		for _, rec := range it.List[1].List {
			vals, err := ParseTuple(rec, "nssn")
			if err != nil {
				return Response{}, c.poison(wireerr.New(wireerr.MalformedData, "malformed failure record"))
			}
			records = append(records, wireerr.Record{
				Code:    vals[0].(uint64),
				Message: string(vals[1].([]byte)),
				File:    string(vals[2].([]byte)),
				Line:    vals[3].(uint64),
			})
		}
		return Response{Success: false, Err: wireerr.FromRecords(records, wireerr.KindFromCode)}, nil
	default:
		return Response{}, c.poison(wireerr.New(wireerr.MalformedData, "unknown response word"))
	}
}

// RunCommandLoop reads and dispatches one command at a time against table,
// threading baton through every handler call, writing back a success or
// failure response, until a terminal command succeeds or a
// non-command-scoped error is raised (spec §4.1 "command loop").
func (c *Conn) RunCommandLoop(table CommandTable, baton interface{}) error {
	for {
		if err := c.checkCancel(); err != nil {
			return err
		}
		cmd, err := c.ReadCommand()
		if err != nil {
			return err
		}
		c.log.Debugf("wire: dispatching %s", cmd.Name)
		entry, ok := table.lookup(cmd.Name)
		if !ok {
			c.log.Debugf("wire: unknown command %s", cmd.Name)
			if err := c.WriteFailure([]wireerr.Record{{
				Code:    wireerr.UnknownCmd.DefaultCode(),
				Message: "Unknown " + cmd.Name,
			}}); err != nil {
				return err
			}
			if err := c.Flush(); err != nil {
				return err
			}
			continue
		}

		resp, herr := entry.Handler(baton, cmd.Payload)
		if herr == nil {
			if err := c.WriteSuccess(resp); err != nil {
				return err
			}
			if err := c.Flush(); err != nil {
				return err
			}
			if entry.Terminal {
				return nil
			}
			continue
		}

		if we, ok := herr.(*wireerr.Error); ok && we.Kind == wireerr.CmdErr {
			cause := we.Unwrap()
			if cause == nil {
				cause = we
			}
			if err := c.WriteFailure(wireerr.Chain(cause)); err != nil {
				return err
			}
			if err := c.Flush(); err != nil {
				return err
			}
			continue
		}
		return c.poison(herr)
	}
}
