package wire

import (
	"io"

	"github.com/rcowham/svnedit/wireerr"
)

// WriteChunked frames a stream whose length is not known up-front: the
// content is surrounded by a list of length-prefixed string chunks, with
// a zero-length string as terminator (spec §4.3). The stream is consumed
// exactly once.
func (c *Conn) WriteChunked(r io.Reader) error {
	if c.poisoned != nil {
		return c.poisoned
	}
	if err := c.writeString("( "); err != nil {
		return err
	}
	buf := make([]byte, c.bufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := c.WriteItem(String(buf[:n])); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.poison(wireerr.Wrap(wireerr.IOError, "reading content stream failed", err))
		}
	}
	if err := c.WriteItem(String(nil)); err != nil {
		return err
	}
	return c.writeString(") ")
}

// ReadChunked reads a chunked content list written by WriteChunked and
// returns the reassembled bytes. Every element must be a string and the
// final element must be the zero-length terminator.
func (c *Conn) ReadChunked() ([]byte, error) {
	it, err := c.ReadItem()
	if err != nil {
		return nil, err
	}
	if it.Kind != KindList || len(it.List) == 0 {
		return nil, c.poison(wireerr.New(wireerr.MalformedData, "chunked content must be a non-empty list"))
	}
	var out []byte
	for i, chunk := range it.List {
		if chunk.Kind != KindString {
			return nil, c.poison(wireerr.New(wireerr.MalformedData, "chunked content element is not a string"))
		}
		if i == len(it.List)-1 {
			if len(chunk.Str) != 0 {
				return nil, c.poison(wireerr.New(wireerr.MalformedData, "chunked content missing zero-length terminator"))
			}
			break
		}
		if len(chunk.Str) == 0 {
			return nil, c.poison(wireerr.New(wireerr.MalformedData, "zero-length chunk before the terminator"))
		}
		out = append(out, chunk.Str...)
	}
	return out, nil
}
