package protocol

import "fmt"

// ProtocolError signals a FastCGI framing violation: a malformed header,
// wrong version, unexpected record type, or truncated body/name-value
// data. The frame or connection that returned it keeps no record of the
// violation: a later call on it reads or writes the transport again.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fcgi: protocol violation during %s", e.Op)
	}
	return fmt.Sprintf("fcgi: protocol violation during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError wraps err as a ProtocolError attributed to op.
func NewProtocolError(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}

// InvalidArgumentError signals a caller-supplied value outside the range
// the framed buffers allow: a buffer size out of range or not a multiple
// of 8.
type InvalidArgumentError struct {
	Arg string
	Err error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("fcgi: invalid argument %s: %v", e.Arg, e.Err)
}

func (e *InvalidArgumentError) Unwrap() error { return e.Err }

// NewInvalidArgumentError wraps err as an InvalidArgumentError attributed
// to arg.
func NewInvalidArgumentError(arg string, err error) *InvalidArgumentError {
	return &InvalidArgumentError{Arg: arg, Err: err}
}

// TransportError wraps an I/O failure observed while reading or writing a
// record. Per the error handling design, transport failures are surfaced
// to the caller the same way protocol violations are.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fcgi: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError attributed to op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// FilterCloseError is returned when a filter-role connection attempts to
// close its out stream before in's terminator has switched the reader to
// data. Whether data itself has been consumed is not checked.
type FilterCloseError struct{}

func (e *FilterCloseError) Error() string {
	return "fcgi: filter role closed out before consuming in"
}
