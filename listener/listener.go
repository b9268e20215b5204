// Package listener implements the listener (C5): binds an endpoint,
// accepts raw connections, performs the opening handshake described in
// spec.md §4.5, and constructs connection.Connection values.
package listener

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tillgo/fastcgi/connection"
	"github.com/tillgo/fastcgi/protocol"
)

// ErrNotListening is returned by Wait/Accept when Listen has not been
// called.
var ErrNotListening = errors.New("fcgi: listener is not listening")

// ErrAlreadyListening is returned by Listen when called more than once.
var ErrAlreadyListening = errors.New("fcgi: listener is already listening")

// ErrListenerClosed is returned by Wait/Accept once Close has run.
var ErrListenerClosed = errors.New("fcgi: listener is closed")

// Listener accepts raw connections from an underlying net.Listener,
// performs the FastCGI opening handshake on each, and hands out
// connection.Connection values. Wait(timeout) answers readiness (C7)
// independently of Accept's handshake logic, via a background accept
// loop and a single-slot handoff channel.
type Listener struct {
	raw    net.Listener
	logger zerolog.Logger

	listening atomic.Bool
	connCh    chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// New wraps an already-bound net.Listener (produced by the transport
// package). The listener is not accepting connections until Listen is
// called.
func New(raw net.Listener, logger zerolog.Logger) *Listener {
	return &Listener{
		raw:    raw,
		logger: logger,
		connCh: make(chan net.Conn, 1),
		closed: make(chan struct{}),
	}
}

// Listen starts the background accept loop. It MUST be called exactly
// once before Wait or Accept.
func (l *Listener) Listen() error {
	if !l.listening.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	go l.acceptLoop()
	return nil
}

// IsListening reports whether Listen has been called. Close does not
// reset it; after Close, Wait and Accept return ErrListenerClosed.
func (l *Listener) IsListening() bool {
	return l.listening.Load()
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.raw.Accept()
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
				l.logger.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		select {
		case l.connCh <- conn:
		case <-l.closed:
			conn.Close()
			return
		}
	}
}

// Wait reports whether a connection is ready to be accepted within
// timeout. A negative timeout blocks until one is ready or the listener
// closes. Wait never consumes the connection it observes; a subsequent
// Accept still returns it.
func (l *Listener) Wait(timeout time.Duration) (bool, error) {
	if !l.IsListening() {
		return false, ErrNotListening
	}
	var after <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		after = timer.C
	}
	select {
	case conn := <-l.connCh:
		l.connCh <- conn
		return true, nil
	case <-after:
		return false, nil
	case <-l.closed:
		return false, ErrListenerClosed
	}
}

// Accept takes the next ready raw connection and runs the opening
// handshake (spec.md §4.5), returning a fully constructed connection.
// Multiple goroutines may call Accept concurrently; each raw connection
// is delivered to exactly one caller.
func (l *Listener) Accept() (*connection.Connection, error) {
	if !l.IsListening() {
		return nil, ErrNotListening
	}
	select {
	case conn := <-l.connCh:
		return l.handshake(conn)
	case <-l.closed:
		return nil, ErrListenerClosed
	}
}

// awaitOpeningRecord reads headers off conn, answering any management
// record inline (get_values/unknown_type, per spec.md §8 scenarios 3
// and 4), until a non-management record arrives. That record is
// returned for handshake to validate as the opening begin_request.
func (l *Listener) awaitOpeningRecord(conn net.Conn, logger zerolog.Logger) (protocol.Header, error) {
	for {
		h, err := protocol.ReadHeader(conn)
		if err != nil {
			conn.Close()
			logger.Error().Err(err).Msg("read opening header failed")
			return protocol.Header{}, err
		}
		if !h.IsManagementRecord() {
			return h, nil
		}
		if err := l.answerManagement(conn, h); err != nil {
			conn.Close()
			logger.Error().Err(err).Msg("answer management record failed")
			return protocol.Header{}, err
		}
	}
}

func (l *Listener) answerManagement(conn net.Conn, h protocol.Header) error {
	body := make([]byte, h.ContentLength)
	if _, err := io.ReadFull(conn, body); err != nil {
		return err
	}
	if h.PaddingLength > 0 {
		if _, err := io.CopyN(io.Discard, conn, int64(h.PaddingLength)); err != nil {
			return err
		}
	}
	switch h.Type {
	case protocol.TypeGetValues:
		query, err := protocol.DecodePairs(bytes.NewReader(body), 8)
		if err != nil {
			return err
		}
		return protocol.WriteGetValuesResultRecord(conn, protocol.GetValuesResponse(query))
	default:
		return protocol.WriteUnknownTypeRecord(conn, h.Type)
	}
}

// handshake implements spec.md §4.5's accept() steps 2-5 on a single
// raw transport.
func (l *Listener) handshake(conn net.Conn) (*connection.Connection, error) {
	correlationID := uuid.New().String()
	logger := l.logger.With().Str("conn_id", correlationID).Logger()

	h, err := l.awaitOpeningRecord(conn, logger)
	if err != nil {
		return nil, err
	}
	if h.Type != protocol.TypeBeginRequest || h.IsManagementRecord() || h.ContentLength != protocol.BeginRequestBodySize {
		_ = protocol.WriteEndRequestRecord(conn, h.RequestID, 0, protocol.StatusCantMpxConn)
		conn.Close()
		err := protocol.NewProtocolError("accept",
			fmt.Errorf("expected opening begin_request, got type=%v management=%v content_length=%d",
				h.Type, h.IsManagementRecord(), h.ContentLength))
		logger.Error().Err(err).Msg("malformed opening record")
		return nil, err
	}

	body, err := protocol.ReadBeginRequestBody(conn)
	if err != nil {
		conn.Close()
		logger.Error().Err(err).Msg("read begin_request body failed")
		return nil, err
	}

	if !body.Role.Valid() {
		_ = protocol.WriteEndRequestRecord(conn, h.RequestID, 0, protocol.StatusUnknownRole)
		conn.Close()
		err := protocol.NewProtocolError("accept", fmt.Errorf("unknown role %d", body.Role))
		logger.Error().Err(err).Msg("unknown role")
		return nil, err
	}

	logger.Debug().Uint16("request_id", h.RequestID).Str("role", body.Role.String()).Msg("accepted connection")

	c, err := connection.New(conn, h.RequestID, body.Role, body.KeepConn())
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close stops the accept loop and closes the underlying net.Listener.
// It is idempotent.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.raw.Close()
	})
	return err
}
