package streambuf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tillgo/fastcgi/protocol"
)

var errFrameClosed = errors.New("fcgi: frame is closed")

// ReaderFrame demultiplexes FastCGI records into one byte stream
// (params, then in, then — for role filter — data), discarding content
// belonging to other requests and answering management records inline.
// It implements the reader half of spec.md §4.3 ("Framed stream buffer").
//
// A ReaderFrame MUST be driven from one goroutine: it holds no lock.
type ReaderFrame struct {
	duplex    Duplex
	requestID uint16
	role      protocol.Role

	buf    []byte
	pooled bool
	pos    int // next unconsumed raw byte
	end    int // end of valid raw bytes

	headerBuf [protocol.HeaderSize]byte
	headerLen int

	streamType       protocol.StreamType
	unreadContent    int
	unreadPadding    int
	endOfStream      bool
	contentToDiscard bool
	closed           bool
}

// NewReaderFrame builds a reader over duplex using a pooled
// DefaultReaderBufferSize buffer, initially decoding records of initial
// (params, for the construction sequence described in spec.md §4.4).
func NewReaderFrame(duplex Duplex, requestID uint16, role protocol.Role, initial protocol.StreamType) *ReaderFrame {
	return newReaderFrame(duplex, requestID, role, initial, getReaderBuf(), true)
}

// NewReaderFrameSize builds a reader with a caller-supplied buffer size,
// validated against the [2048,65528] / multiple-of-8 invariant.
func NewReaderFrameSize(duplex Duplex, requestID uint16, role protocol.Role, initial protocol.StreamType, size int) (*ReaderFrame, error) {
	if err := validateBufferSize(size); err != nil {
		return nil, err
	}
	return newReaderFrame(duplex, requestID, role, initial, make([]byte, size), false), nil
}

func newReaderFrame(duplex Duplex, requestID uint16, role protocol.Role, initial protocol.StreamType, buf []byte, pooled bool) *ReaderFrame {
	return &ReaderFrame{
		duplex:     duplex,
		requestID:  requestID,
		role:       role,
		buf:        buf,
		pooled:     pooled,
		streamType: initial,
	}
}

// StreamType reports the stream type currently being decoded.
func (f *ReaderFrame) StreamType() protocol.StreamType { return f.streamType }

// IsClosed reports whether Close has been called.
func (f *ReaderFrame) IsClosed() bool { return f.closed }

// InFullyConsumed reports whether the reader's stream type is no longer
// in: true for a reader that never switched to in (an authorizer's stays
// on params) and for a filter's once in's terminator has switched it to
// data. A responder's reader stays on in, so it reports false even after
// in's terminator. Connection.Close
// consults this for the filter out-close precondition (spec.md §9's
// conservative resolution of the open question on this check).
func (f *ReaderFrame) InFullyConsumed() bool {
	return f.streamType != protocol.StreamStdin
}

// Reset switches the frame to decode a new stream type, clearing all
// per-record state. Used once params decoding completes to begin
// serving in (spec.md §4.4); the filter in→data transition uses the
// same logic internally via reset.
func (f *ReaderFrame) Reset(to protocol.StreamType) {
	f.reset(to)
}

func (f *ReaderFrame) reset(to protocol.StreamType) {
	f.streamType = to
	f.endOfStream = false
	f.contentToDiscard = false
	f.unreadContent = 0
	f.unreadPadding = 0
}

// Close releases the frame's buffer. Readers emit nothing on close; only
// writers emit terminator records.
func (f *ReaderFrame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.pooled {
		putReaderBuf(f.buf)
	}
	f.buf = nil
	return nil
}

// Read implements io.Reader, delivering content bytes of the current
// stream type. It transparently discards records belonging to other
// requests, answers management records inline, skips padding, and — for
// role filter — switches from in to data on in's terminator without the
// caller ever observing an intervening EOF.
func (f *ReaderFrame) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errFrameClosed
	}
	for {
		if f.endOfStream {
			return 0, io.EOF
		}
		if f.unreadContent > 0 {
			if f.contentToDiscard {
				if err := f.discardContent(); err != nil {
					return 0, err
				}
				continue
			}
			return f.deliverContent(p)
		}
		if f.unreadPadding > 0 {
			if _, err := f.consumePadding(); err != nil {
				return 0, err
			}
			continue
		}
		if err := f.advance(); err != nil {
			return 0, err
		}
	}
}

func (f *ReaderFrame) ensureData() error {
	if f.pos == f.end {
		return f.refill()
	}
	return nil
}

func (f *ReaderFrame) refill() error {
	n, err := f.duplex.Read(f.buf)
	if n > 0 {
		f.pos, f.end = 0, n
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	if err == io.EOF {
		return protocol.NewProtocolError("reader refill", err)
	}
	return protocol.NewTransportError("reader refill", err)
}

func (f *ReaderFrame) consumePadding() (int, error) {
	if err := f.ensureData(); err != nil {
		return 0, err
	}
	n := f.end - f.pos
	if n > f.unreadPadding {
		n = f.unreadPadding
	}
	f.pos += n
	f.unreadPadding -= n
	return n, nil
}

func (f *ReaderFrame) discardContent() error {
	if err := f.ensureData(); err != nil {
		return err
	}
	n := f.end - f.pos
	if n > f.unreadContent {
		n = f.unreadContent
	}
	f.pos += n
	f.unreadContent -= n
	return nil
}

func (f *ReaderFrame) deliverContent(p []byte) (int, error) {
	if err := f.ensureData(); err != nil {
		return 0, err
	}
	n := f.end - f.pos
	if n > f.unreadContent {
		n = f.unreadContent
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, f.buf[f.pos:f.pos+n])
	f.pos += n
	f.unreadContent -= n
	return n, nil
}

// readExact reads n bytes regardless of the stream's content/padding
// state, used to slurp a management record's body.
func (f *ReaderFrame) readExact(n int) ([]byte, error) {
	out := make([]byte, n)
	read := 0
	for read < n {
		if err := f.ensureData(); err != nil {
			return nil, err
		}
		c := copy(out[read:], f.buf[f.pos:f.end])
		f.pos += c
		read += c
	}
	return out, nil
}

func (f *ReaderFrame) skipExact(n int) error {
	skipped := 0
	for skipped < n {
		if err := f.ensureData(); err != nil {
			return err
		}
		c := f.end - f.pos
		if skipped+c > n {
			c = n - skipped
		}
		f.pos += c
		skipped += c
	}
	return nil
}

// advance accumulates and decodes the next 8-byte header (possibly
// spanning more than one refill) and dispatches it per spec.md §4.3.1.
func (f *ReaderFrame) advance() error {
	for f.headerLen < protocol.HeaderSize {
		if err := f.ensureData(); err != nil {
			return err
		}
		n := copy(f.headerBuf[f.headerLen:], f.buf[f.pos:f.end])
		f.pos += n
		f.headerLen += n
	}
	h, err := protocol.DecodeHeader(f.headerBuf[:])
	f.headerLen = 0
	if err != nil {
		return err
	}
	return f.processHeader(h)
}

func (f *ReaderFrame) processHeader(h protocol.Header) error {
	switch {
	case h.Type == protocol.TypeBeginRequest && !h.IsManagementRecord():
		// A second request multiplexed onto this connection: reject and
		// discard its content without ending our own stream.
		if err := protocol.WriteEndRequestRecord(f.duplex, h.RequestID, 0, protocol.StatusCantMpxConn); err != nil {
			return err
		}
		f.unreadContent = int(h.ContentLength)
		f.unreadPadding = int(h.PaddingLength)
		f.contentToDiscard = true
		return nil
	case h.IsManagementRecord():
		return f.handleManagement(h)
	case h.RequestID != f.requestID:
		f.unreadContent = int(h.ContentLength)
		f.unreadPadding = int(h.PaddingLength)
		f.contentToDiscard = true
		return nil
	case h.Type == protocol.RecordType(f.streamType):
		f.unreadPadding = int(h.PaddingLength)
		if h.ContentLength > 0 {
			f.unreadContent = int(h.ContentLength)
			f.contentToDiscard = false
		} else {
			f.transitionOnEmptyRecord()
		}
		return nil
	default:
		_ = protocol.WriteEndRequestRecord(f.duplex, f.requestID, 0, protocol.StatusCantMpxConn)
		return protocol.NewProtocolError("reader",
			fmt.Errorf("unexpected record type %v while decoding %v", h.Type, f.streamType))
	}
}

func (f *ReaderFrame) transitionOnEmptyRecord() {
	if f.streamType == protocol.StreamStdin && f.role == protocol.RoleFilter {
		f.reset(protocol.StreamData)
		return
	}
	f.endOfStream = true
}

func (f *ReaderFrame) handleManagement(h protocol.Header) error {
	body, err := f.readExact(int(h.ContentLength))
	if err != nil {
		return err
	}
	if err := f.skipExact(int(h.PaddingLength)); err != nil {
		return err
	}
	switch h.Type {
	case protocol.TypeGetValues:
		query, err := protocol.DecodePairs(bytes.NewReader(body), 8)
		if err != nil {
			return err
		}
		return protocol.WriteGetValuesResultRecord(f.duplex, protocol.GetValuesResponse(query))
	default:
		return protocol.WriteUnknownTypeRecord(f.duplex, h.Type)
	}
}
