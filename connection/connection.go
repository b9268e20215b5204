// Package connection implements the server connection (C4): the
// per-request object that owns a transport, pre-decodes params, and
// exposes in/out/err streams plus the application status.
package connection

import (
	"github.com/tillgo/fastcgi/protocol"
	"github.com/tillgo/fastcgi/streambuf"
)

// Connection is a single accepted FastCGI request. It is NOT safe for
// concurrent use: every stream it exposes must be driven from one
// goroutine (spec.md §5).
type Connection struct {
	duplex    streambuf.Duplex
	requestID uint16
	role      protocol.Role
	keepConn  bool

	params   []protocol.Pair
	paramIdx map[string]int

	in  *streambuf.ReaderFrame
	out *streambuf.WriterFrame
	err *streambuf.WriterFrame

	appStatus int32
	closed    bool
}

// New constructs a Connection over duplex for the given request id,
// role, and keep-connection flag. It drains the params stream fully
// before returning (spec.md §4.4), then — for responder and filter —
// rewinds the reader to decode in.
func New(duplex streambuf.Duplex, requestID uint16, role protocol.Role, keepConn bool) (*Connection, error) {
	reader := streambuf.NewReaderFrame(duplex, requestID, role, protocol.StreamParams)

	pairs, err := protocol.DecodePairs(paramsReader{reader}, 16)
	if err != nil {
		reader.Close()
		return nil, err
	}

	idx := make(map[string]int, len(pairs))
	for i, p := range pairs {
		name := string(p.Name)
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}

	switch role {
	case protocol.RoleResponder, protocol.RoleFilter:
		reader.Reset(protocol.StreamStdin)
	case protocol.RoleAuthorizer:
		// Authorizer reads neither in nor data; the reader is kept at
		// params (already exhausted) and never advanced further.
	}

	c := &Connection{
		duplex:    duplex,
		requestID: requestID,
		role:      role,
		keepConn:  keepConn,
		params:    pairs,
		paramIdx:  idx,
		in:        reader,
		out:       streambuf.NewWriterFrame(duplex, requestID, protocol.StreamStdout),
		err:       streambuf.NewWriterFrame(duplex, requestID, protocol.StreamStderr),
	}
	return c, nil
}

// paramsReader adapts a ReaderFrame already positioned on params to
// io.Reader without exposing the frame's other methods to the decoder.
type paramsReader struct{ r *streambuf.ReaderFrame }

func (p paramsReader) Read(b []byte) (int, error) { return p.r.Read(b) }

// RequestID reports the nonzero request id assigned at construction.
func (c *Connection) RequestID() uint16 { return c.requestID }

// Role reports the role this connection was opened with.
func (c *Connection) Role() protocol.Role { return c.role }

// KeepConn reports whether the FCGI_KEEP_CONN flag was set. It is
// surfaced for the caller's information only: this package always
// tears the connection down on Close (spec.md §9).
func (c *Connection) KeepConn() bool { return c.keepConn }

// ApplicationStatus returns the status most recently set with
// SetApplicationStatus, or 0 if never set.
func (c *Connection) ApplicationStatus() int32 { return c.appStatus }

// SetApplicationStatus sets the value reported in the end_request
// record's app_status field.
func (c *Connection) SetApplicationStatus(status int32) { c.appStatus = status }

// Parameters returns the decoded params list in wire order.
func (c *Connection) Parameters() []protocol.Pair { return c.params }

// Parameter looks up a parameter by name, returning its value and
// whether it was present. On duplicate names, the first occurrence
// wins.
func (c *Connection) Parameter(name string) (string, bool) {
	i, ok := c.paramIdx[name]
	if !ok {
		return "", false
	}
	return string(c.params[i].Value), true
}

// In returns the input stream reader. Valid for role responder and
// filter; for authorizer it is already at end-of-stream.
func (c *Connection) In() *streambuf.ReaderFrame { return c.in }

// Out returns the output stream writer.
func (c *Connection) Out() *streambuf.WriterFrame { return c.out }

// Err returns the error stream writer.
func (c *Connection) Err() *streambuf.WriterFrame { return c.err }

// Close idempotently closes err, then out, then in, emitting out's
// terminator and the end_request record in a single transport write
// when they fit (spec.md §4.3.3), then tears down the transport.
//
// For role filter, closing out requires in to have been fully
// consumed; see ReaderFrame.InFullyConsumed for the conservative
// resolution of spec.md §9's open question on this check.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.role == protocol.RoleFilter && !c.in.InFullyConsumed() {
		_ = c.err.Close()
		_ = c.out.Close()
		_ = c.in.Close()
		_ = c.duplex.Close()
		return &protocol.FilterCloseError{}
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(c.err.Close())

	trailer := protocol.EncodeEndRequestRecord(c.requestID, uint32(c.appStatus), protocol.StatusRequestComplete)
	record(c.out.CloseAndAppend(trailer))

	record(c.in.Close())
	record(c.duplex.Close())

	return firstErr
}
