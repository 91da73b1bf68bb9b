package wire

import (
	"bufio"
	"errors"
	"io"

	"github.com/rcowham/svnedit/wireerr"
	"github.com/sirupsen/logrus"
)

// DefaultBufSize is the conventional buffer size for both the read and
// write buffers (spec §4.1: "conventionally ~4 KiB each").
const DefaultBufSize = 4096

// Transport is the opaque bidirectional byte stream the codec is lent.
// The codec never closes it (spec §5, "Transport ownership is external").
type Transport interface {
	io.Reader
	io.Writer
}

// CancelFunc is polled by the codec at well-defined points: before each
// buffer flush, before each item read, before each large
// (direct-to-transport) read, and before each command the dispatch loop
// reads (spec §5).
// It returns a non-nil error (conventionally a *wireerr.Error of kind
// Cancelled) when the caller should abandon the operation in progress.
type CancelFunc func() error

// Conn is a buffered, item-language connection over a Transport. It is not
// safe for concurrent use (spec §5: "not internally synchronized").
type Conn struct {
	transport Transport
	r         *bufio.Reader
	w         *bufio.Writer
	bufSize   int
	log       *logrus.Logger
	cancel    CancelFunc
	poisoned  error
}

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithLogger overrides the default (package-level) logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// WithCancel installs a cancellation predicate (spec §5).
func WithCancel(f CancelFunc) Option {
	return func(c *Conn) { c.cancel = f }
}

// WithBufSize overrides DefaultBufSize for both buffers.
func WithBufSize(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// NewConn wraps a transport with the item-language codec's buffering.
func NewConn(t Transport, opts ...Option) *Conn {
	c := &Conn{
		transport: t,
		bufSize:   DefaultBufSize,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.r = bufio.NewReaderSize(t, c.bufSize)
	c.w = bufio.NewWriterSize(t, c.bufSize)
	return c
}

// Poisoned reports the error that poisoned this connection, if any. Once
// poisoned, every further operation returns this same error (spec §4.1:
// "connection is poisoned (no further operations)").
func (c *Conn) Poisoned() error {
	return c.poisoned
}

func (c *Conn) poison(err error) error {
	if c.poisoned == nil {
		c.poisoned = err
	}
	return err
}

func (c *Conn) checkCancel() error {
	if c.cancel == nil {
		return nil
	}
	if err := c.cancel(); err != nil {
		return c.poison(err)
	}
	return nil
}

// Flush drains the write buffer to the transport (spec §4.1 "flush"
// operation).
func (c *Conn) Flush() error {
	if c.poisoned != nil {
		return c.poisoned
	}
	if err := c.checkCancel(); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return c.poison(wireerr.Wrap(wireerr.IOError, "flush failed", err))
	}
	return nil
}

// --- write path ---

func (c *Conn) writeBytes(b []byte) error {
	if c.poisoned != nil {
		return c.poisoned
	}
	if _, err := c.w.Write(b); err != nil {
		return c.poison(wireerr.Wrap(wireerr.IOError, "write failed", err))
	}
	return nil
}

func (c *Conn) writeString(s string) error {
	return c.writeBytes([]byte(s))
}

// WriteItem encodes and buffers a single item, recursively for lists. The
// caller must Flush (or issue a read, which flushes implicitly) to
// guarantee the bytes reach the transport.
func (c *Conn) WriteItem(it Item) error {
	switch it.Kind {
	case KindNumber:
		return c.writeString(numToString(it.Num) + " ")
	case KindString:
		if err := c.writeString(numToString(uint64(len(it.Str))) + ":"); err != nil {
			return err
		}
		if err := c.writeBytes(it.Str); err != nil {
			return err
		}
		return c.writeString(" ")
	case KindWord:
		if it.Word == "" || !isAlpha(it.Word[0]) {
			return errors.New("wire: invalid word " + it.Word)
		}
		for i := 1; i < len(it.Word); i++ {
			if !isWordCont(it.Word[i]) {
				return errors.New("wire: invalid word " + it.Word)
			}
		}
		return c.writeString(it.Word + " ")
	case KindList:
		if err := c.writeString("( "); err != nil {
			return err
		}
		for _, child := range it.List {
			if err := c.WriteItem(child); err != nil {
				return err
			}
		}
		return c.writeString(") ")
	default:
		return errors.New("wire: invalid item kind")
	}
}

func numToString(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// --- read path ---

// readByte reads a single byte, flushing the write buffer first so a peer
// waiting on our output cannot deadlock against us waiting on theirs
// (spec §4.1 "Read path").
func (c *Conn) readByte() (byte, error) {
	if c.poisoned != nil {
		return 0, c.poisoned
	}
	if err := c.w.Flush(); err != nil {
		return 0, c.poison(wireerr.Wrap(wireerr.IOError, "flush before read failed", err))
	}
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, c.poison(classifyReadErr(err))
	}
	return b, nil
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wireerr.Wrap(wireerr.ConnectionClosed, "connection closed", err)
	}
	return wireerr.Wrap(wireerr.IOError, "read failed", err)
}

// readExactly reads exactly n bytes, resuming across short reads, and
// bypassing the buffer's copy step for requests larger than its capacity
// (this is exactly what io.ReadFull over a *bufio.Reader already does).
func (c *Conn) readExactly(n int) ([]byte, error) {
	if n > c.r.Size() {
		if err := c.checkCancel(); err != nil {
			return nil, err
		}
	}
	if c.poisoned != nil {
		return nil, c.poisoned
	}
	if err := c.w.Flush(); err != nil {
		return nil, c.poison(wireerr.Wrap(wireerr.IOError, "flush before read failed", err))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, c.poison(classifyReadErr(err))
	}
	return buf, nil
}

func (c *Conn) skipWhitespace() error {
	for {
		b, err := c.peekByte()
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			return nil
		}
		if _, err := c.readByte(); err != nil {
			return err
		}
	}
}

func (c *Conn) peekByte() (byte, error) {
	if c.poisoned != nil {
		return 0, c.poisoned
	}
	if err := c.w.Flush(); err != nil {
		return 0, c.poison(wireerr.Wrap(wireerr.IOError, "flush before read failed", err))
	}
	b, err := c.r.Peek(1)
	if err != nil {
		return 0, c.poison(classifyReadErr(err))
	}
	return b[0], nil
}

// ReadItem decodes one item from the wire, consuming and validating its
// terminating whitespace (spec §4.1 grammar).
func (c *Conn) ReadItem() (Item, error) {
	if err := c.checkCancel(); err != nil {
		return Item{}, err
	}
	if err := c.skipWhitespace(); err != nil {
		return Item{}, err
	}
	b, err := c.peekByte()
	if err != nil {
		return Item{}, err
	}
	switch {
	case b == '(':
		return c.readList()
	case isDigit(b):
		return c.readNumberOrString()
	case isAlpha(b):
		return c.readWord()
	default:
		return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "unexpected byte in item stream"))
	}
}

func (c *Conn) readList() (Item, error) {
	if _, err := c.readByte(); err != nil { // consume '('
		return Item{}, err
	}
	var items []Item
	for {
		if err := c.skipWhitespace(); err != nil {
			return Item{}, err
		}
		b, err := c.peekByte()
		if err != nil {
			return Item{}, err
		}
		if b == ')' {
			if _, err := c.readByte(); err != nil {
				return Item{}, err
			}
			// Exactly one whitespace byte terminates the list; reading
			// further would block across the message boundary.
			term, err := c.readByte()
			if err != nil {
				return Item{}, err
			}
			if !isWhitespace(term) {
				return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "list missing terminator"))
			}
			return List(items...), nil
		}
		item, err := c.ReadItem()
		if err != nil {
			return Item{}, err
		}
		items = append(items, item)
	}
}

func (c *Conn) readWord() (Item, error) {
	var buf []byte
	for {
		b, err := c.peekByte()
		if err != nil {
			return Item{}, err
		}
		if isWhitespace(b) {
			if _, err := c.readByte(); err != nil {
				return Item{}, err
			}
			break
		}
		if !isWordCont(b) {
			return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "invalid word character"))
		}
		if _, err := c.readByte(); err != nil {
			return Item{}, err
		}
		buf = append(buf, b)
	}
	return Word(string(buf)), nil
}

func (c *Conn) readNumberOrString() (Item, error) {
	var digits []byte
	for {
		b, err := c.peekByte()
		if err != nil {
			return Item{}, err
		}
		if isDigit(b) {
			if _, err := c.readByte(); err != nil {
				return Item{}, err
			}
			digits = append(digits, b)
			continue
		}
		if b == ':' {
			if _, err := c.readByte(); err != nil { // consume ':'
				return Item{}, err
			}
			n, ok := parseUint(digits)
			if !ok {
				return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "invalid string length"))
			}
			data, err := c.readExactly(int(n))
			if err != nil {
				return Item{}, err
			}
			term, err := c.readByte()
			if err != nil {
				return Item{}, err
			}
			if !isWhitespace(term) {
				return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "string missing terminator"))
			}
			return String(data), nil
		}
		if isWhitespace(b) {
			if _, err := c.readByte(); err != nil {
				return Item{}, err
			}
			n, ok := parseUint(digits)
			if !ok {
				return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "invalid number"))
			}
			return Number(n), nil
		}
		return Item{}, c.poison(wireerr.New(wireerr.MalformedData, "invalid digit run"))
	}
}

func parseUint(digits []byte) (uint64, bool) {
	if len(digits) == 0 {
		return 0, false
	}
	var n uint64
	for _, d := range digits {
		n = n*10 + uint64(d-'0')
	}
	return n, true
}
