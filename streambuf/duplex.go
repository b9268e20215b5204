// Package streambuf implements the framed stream buffer (C3): the
// per-stream read/write buffer that demultiplexes or multiplexes FastCGI
// records over a raw duplex transport.
package streambuf

import (
	"io"

	"github.com/tillgo/fastcgi/protocol"
)

// Duplex is the blocking byte transport a frame reads from and writes
// to. It is consumed from an external collaborator (spec.md §6): this
// package never dials or accepts a connection itself. Any net.Conn
// already satisfies it.
type Duplex interface {
	io.Reader
	io.Writer
	io.Closer
}

// Frame is the behavior common to ReaderFrame and WriterFrame: the
// REDESIGN FLAG in spec.md §9 splits the single mode-switched buffer of
// the original implementation into two types sharing this trait, keyed
// by stream type, instead of one type with a mode bit.
type Frame interface {
	StreamType() protocol.StreamType
	Close() error
	IsClosed() bool
}
