package streambuf

import (
	"github.com/tillgo/fastcgi/protocol"
)

// headerSlotSize is the number of leading bytes of a writer's buffer
// reserved for the record header, filled in just before each flush so
// the content region never needs to be copied to make room for it.
const headerSlotSize = protocol.HeaderSize

// WriterFrame multiplexes one outgoing byte stream (out or err) into
// FastCGI records, padding each to an 8-byte boundary and reserving the
// header slot in its own backing buffer to avoid copies. It implements
// the writer half of spec.md §4.3.
//
// Buffer layout: [header slot (8 B)] [content region] [overshoot slot
// (1 B)]. The overshoot slot holds exactly one byte beyond the content
// region so the "is there room" check stays a simple comparison; a
// pending overshoot byte is folded into the record as its last content
// byte at flush time.
//
// A WriterFrame MUST be driven from one goroutine: it holds no lock.
type WriterFrame struct {
	duplex     Duplex
	requestID  uint16
	streamType protocol.StreamType

	buf    []byte
	pooled bool
	size   int

	putEnd       int
	hasOvershoot bool
	overshoot    byte
	everWritten  bool
	closed       bool
}

// NewWriterFrame builds a writer over duplex using a pooled
// DefaultWriterBufferSize buffer.
func NewWriterFrame(duplex Duplex, requestID uint16, streamType protocol.StreamType) *WriterFrame {
	return newWriterFrame(duplex, requestID, streamType, getWriterBuf(), true)
}

// NewWriterFrameSize builds a writer with a caller-supplied buffer size,
// validated against the [2048,65528] / multiple-of-8 invariant.
func NewWriterFrameSize(duplex Duplex, requestID uint16, streamType protocol.StreamType, size int) (*WriterFrame, error) {
	if err := validateBufferSize(size); err != nil {
		return nil, err
	}
	return newWriterFrame(duplex, requestID, streamType, make([]byte, size), false), nil
}

func newWriterFrame(duplex Duplex, requestID uint16, streamType protocol.StreamType, buf []byte, pooled bool) *WriterFrame {
	return &WriterFrame{
		duplex:     duplex,
		requestID:  requestID,
		streamType: streamType,
		buf:        buf,
		pooled:     pooled,
		size:       len(buf),
		putEnd:     headerSlotSize,
	}
}

// StreamType reports the stream type this writer frames records as.
func (f *WriterFrame) StreamType() protocol.StreamType { return f.streamType }

// IsClosed reports whether Close has been called.
func (f *WriterFrame) IsClosed() bool { return f.closed }

func (f *WriterFrame) contentRegionEnd() int { return f.size - 1 }

// Write buffers p into the writer's content region, flushing a complete
// record to the transport whenever the region (plus the one-byte
// overshoot slot) fills.
func (f *WriterFrame) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errFrameClosed
	}
	total := 0
	for len(p) > 0 {
		end := f.contentRegionEnd()
		if f.putEnd < end {
			n := len(p)
			if room := end - f.putEnd; n > room {
				n = room
			}
			copy(f.buf[f.putEnd:], p[:n])
			f.putEnd += n
			p = p[n:]
			total += n
			continue
		}
		if !f.hasOvershoot {
			f.overshoot = p[0]
			f.hasOvershoot = true
			p = p[1:]
			total++
			continue
		}
		if err := f.flush(false); err != nil {
			return total, err
		}
	}
	return total, nil
}

// flush frames the buffered content into one record and issues exactly
// one transport write (spec.md §4.3.2). With final=false, a flush with
// content_length 0 performs no write. Close does not use flush for the
// terminator record: CloseAndAppend encodes and writes it directly.
func (f *WriterFrame) flush(final bool) error {
	contentLength := f.putEnd - headerSlotSize
	if f.hasOvershoot {
		f.buf[f.putEnd] = f.overshoot
		contentLength++
		f.hasOvershoot = false
	}
	if contentLength == 0 && !final {
		return nil
	}
	pad := protocol.Pad(contentLength)
	padStart := headerSlotSize + contentLength
	for i := 0; i < int(pad); i++ {
		f.buf[padStart+i] = 0
	}
	protocol.EncodeHeader(f.buf[:headerSlotSize], protocol.RecordType(f.streamType), f.requestID, contentLength, pad)
	n := headerSlotSize + contentLength + int(pad)
	if _, err := f.duplex.Write(f.buf[:n]); err != nil {
		return protocol.NewTransportError("writer flush", err)
	}
	if contentLength > 0 {
		f.everWritten = true
	}
	f.putEnd = headerSlotSize
	return nil
}

// Close flushes any pending content and emits the stream's terminator
// record (spec.md §4.3.3): an empty-content record of this stream's
// type, except that an err stream which was never written to emits
// nothing at all.
func (f *WriterFrame) Close() error {
	return f.CloseAndAppend(nil)
}

// CloseAndAppend behaves like Close but, when a terminator record is
// emitted, appends trailer immediately after it — in the same transport
// write when it fits in the backing buffer, otherwise in a second write.
// The out writer uses this to append its end_request record in one
// write per spec.md §4.3.3's "MUST be buffered... and flushed in one
// transport write if they fit".
func (f *WriterFrame) CloseAndAppend(trailer []byte) error {
	if f.closed {
		return nil
	}
	f.closed = true
	defer f.release()

	if f.putEnd > headerSlotSize || f.hasOvershoot {
		if err := f.flush(false); err != nil {
			return err
		}
	}
	skipTerminator := f.streamType == protocol.StreamStderr && !f.everWritten
	if skipTerminator {
		if len(trailer) == 0 {
			return nil
		}
		if _, err := f.duplex.Write(trailer); err != nil {
			return protocol.NewTransportError("writer close", err)
		}
		return nil
	}

	protocol.EncodeHeader(f.buf[:headerSlotSize], protocol.RecordType(f.streamType), f.requestID, 0, 0)
	if len(trailer) > 0 && headerSlotSize+len(trailer) <= f.size {
		copy(f.buf[headerSlotSize:], trailer)
		if _, err := f.duplex.Write(f.buf[:headerSlotSize+len(trailer)]); err != nil {
			return protocol.NewTransportError("writer close", err)
		}
		return nil
	}
	if _, err := f.duplex.Write(f.buf[:headerSlotSize]); err != nil {
		return protocol.NewTransportError("writer close", err)
	}
	if len(trailer) > 0 {
		if _, err := f.duplex.Write(trailer); err != nil {
			return protocol.NewTransportError("writer close", err)
		}
	}
	return nil
}

func (f *WriterFrame) release() {
	if f.pooled {
		putWriterBuf(f.buf)
	}
	f.buf = nil
}
