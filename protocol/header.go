package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed length of every FastCGI record header.
const HeaderSize = 8

// Header is the 8-byte framing prefix of every FastCGI record (§3).
type Header struct {
	Version       uint8
	Type          RecordType
	RequestID     uint16
	ContentLength uint16
	PaddingLength uint8
	Reserved      uint8
}

// IsManagementRecord reports whether h belongs to a management record.
func (h Header) IsManagementRecord() bool { return IsManagementRecord(h.RequestID) }

// Pad returns the padding_length needed to align contentLength to an
// 8-byte record boundary.
func Pad(contentLength int) uint8 {
	return uint8((8 - contentLength%8) % 8)
}

// EncodeHeader writes an 8-byte header into buf, which must have length
// at least HeaderSize.
func EncodeHeader(buf []byte, typ RecordType, requestID uint16, contentLength int, paddingLength uint8) {
	buf[0] = Version
	buf[1] = byte(typ)
	binary.BigEndian.PutUint16(buf[2:4], requestID)
	binary.BigEndian.PutUint16(buf[4:6], uint16(contentLength))
	buf[6] = paddingLength
	buf[7] = 0
}

// DecodeHeader parses an 8-byte header previously read from the
// transport. It rejects any header whose version is not 1.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, NewProtocolError("decode header", io.ErrUnexpectedEOF)
	}
	h := Header{
		Version:       buf[0],
		Type:          RecordType(buf[1]),
		RequestID:     binary.BigEndian.Uint16(buf[2:4]),
		ContentLength: binary.BigEndian.Uint16(buf[4:6]),
		PaddingLength: buf[6],
		Reserved:      buf[7],
	}
	if h.Version != Version {
		return Header{}, NewProtocolError("decode header", fmt.Errorf("unsupported protocol version %d", h.Version))
	}
	return h, nil
}

// ReadHeader reads and decodes exactly one header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, NewProtocolError("read header", err)
		}
		return Header{}, NewTransportError("read header", err)
	}
	return DecodeHeader(buf[:])
}

// WriteHeader encodes and writes a header to w.
func WriteHeader(w io.Writer, typ RecordType, requestID uint16, contentLength int, paddingLength uint8) error {
	var buf [HeaderSize]byte
	EncodeHeader(buf[:], typ, requestID, contentLength, paddingLength)
	if _, err := w.Write(buf[:]); err != nil {
		return NewTransportError("write header", err)
	}
	return nil
}
