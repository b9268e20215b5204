package protocol

import (
	"encoding/binary"
	"io"
)

// BeginRequestBodySize is the fixed length of a begin_request record body.
const BeginRequestBodySize = 8

// BeginRequestBody is the body of a begin_request record: role, flags,
// and 5 reserved bytes that are ignored on decode.
type BeginRequestBody struct {
	Role  Role
	Flags BeginRequestFlags
}

// KeepConn reports whether the FCGI_KEEP_CONN flag was set.
func (b BeginRequestBody) KeepConn() bool { return b.Flags&FlagKeepConn != 0 }

// DecodeBeginRequestBody parses an 8-byte begin_request body.
func DecodeBeginRequestBody(buf []byte) (BeginRequestBody, error) {
	if len(buf) < BeginRequestBodySize {
		return BeginRequestBody{}, NewProtocolError("decode begin_request body", io.ErrUnexpectedEOF)
	}
	return BeginRequestBody{
		Role:  Role(binary.BigEndian.Uint16(buf[0:2])),
		Flags: BeginRequestFlags(buf[2]),
	}, nil
}

// ReadBeginRequestBody reads and decodes a begin_request body from r.
func ReadBeginRequestBody(r io.Reader) (BeginRequestBody, error) {
	var buf [BeginRequestBodySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return BeginRequestBody{}, NewTransportError("read begin_request body", err)
	}
	return DecodeBeginRequestBody(buf[:])
}

// EndRequestBodySize is the fixed length of an end_request record body.
const EndRequestBodySize = 8

// EndRequestBody is the body of an end_request record.
type EndRequestBody struct {
	AppStatus      uint32
	ProtocolStatus ProtocolStatus
}

// Encode writes the body into buf, which must have length at least
// EndRequestBodySize.
func (b EndRequestBody) Encode(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], b.AppStatus)
	buf[4] = byte(b.ProtocolStatus)
	buf[5], buf[6], buf[7] = 0, 0, 0
}

// EncodeEndRequestRecord returns a complete end_request record (header +
// body; no padding needed since 8+8 is already 8-aligned).
func EncodeEndRequestRecord(requestID uint16, appStatus uint32, status ProtocolStatus) []byte {
	buf := make([]byte, HeaderSize+EndRequestBodySize)
	EncodeHeader(buf[:HeaderSize], TypeEndRequest, requestID, EndRequestBodySize, 0)
	EndRequestBody{AppStatus: appStatus, ProtocolStatus: status}.Encode(buf[HeaderSize:])
	return buf
}

// WriteEndRequestRecord writes a complete end_request record to w in a
// single write.
func WriteEndRequestRecord(w io.Writer, requestID uint16, appStatus uint32, status ProtocolStatus) error {
	if _, err := w.Write(EncodeEndRequestRecord(requestID, appStatus, status)); err != nil {
		return NewTransportError("write end_request", err)
	}
	return nil
}

// UnknownTypeBodySize is the fixed length of an unknown_type record body:
// one byte naming the unrecognized type, followed by 7 reserved bytes.
const UnknownTypeBodySize = 8

// WriteUnknownTypeRecord answers a management record of an unrecognized
// type with an unknown_type record.
func WriteUnknownTypeRecord(w io.Writer, unknownType RecordType) error {
	var buf [HeaderSize + UnknownTypeBodySize]byte
	EncodeHeader(buf[:HeaderSize], TypeUnknownType, NullRequestID, UnknownTypeBodySize, 0)
	buf[HeaderSize] = byte(unknownType)
	if _, err := w.Write(buf[:]); err != nil {
		return NewTransportError("write unknown_type", err)
	}
	return nil
}
