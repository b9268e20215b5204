package streambuf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillgo/fastcgi/protocol"
)

func appendRecord(buf []byte, typ protocol.RecordType, requestID uint16, content []byte) []byte {
	pad := protocol.Pad(len(content))
	hdr := make([]byte, protocol.HeaderSize)
	protocol.EncodeHeader(hdr, typ, requestID, len(content), pad)
	buf = append(buf, hdr...)
	buf = append(buf, content...)
	buf = append(buf, make([]byte, pad)...)
	return buf
}

func TestReaderFrame_ReadsSingleRecord(t *testing.T) {
	var wire []byte
	wire = appendRecord(wire, protocol.TypeStdin, 1, []byte("hello"))
	wire = appendRecord(wire, protocol.TypeStdin, 1, nil)

	in := &nopCloseBuffer{Buffer: *bytes.NewBuffer(wire)}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReaderFrame_ReadAcrossMultipleRecords(t *testing.T) {
	var wire []byte
	wire = appendRecord(wire, protocol.TypeStdin, 2, []byte("abc"))
	wire = appendRecord(wire, protocol.TypeStdin, 2, []byte("def"))
	wire = appendRecord(wire, protocol.TypeStdin, 2, nil)

	in := &nopCloseBuffer{Buffer: *bytes.NewBuffer(wire)}
	r := NewReaderFrame(in, 2, protocol.RoleResponder, protocol.StreamStdin)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
}

func TestReaderFrame_DiscardsForeignRequestRecords(t *testing.T) {
	var wire []byte
	wire = appendRecord(wire, protocol.TypeStdin, 99, []byte("not mine"))
	wire = appendRecord(wire, protocol.TypeStdin, 1, []byte("mine"))
	wire = appendRecord(wire, protocol.TypeStdin, 1, nil)

	in := &nopCloseBuffer{Buffer: *bytes.NewBuffer(wire)}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(got))
}

func TestReaderFrame_FilterTransitionsFromInToData(t *testing.T) {
	var wire []byte
	wire = appendRecord(wire, protocol.TypeStdin, 4, []byte("in-bytes"))
	wire = appendRecord(wire, protocol.TypeStdin, 4, nil)
	wire = appendRecord(wire, protocol.TypeData, 4, []byte("data-bytes"))
	wire = appendRecord(wire, protocol.TypeData, 4, nil)

	in := &nopCloseBuffer{Buffer: *bytes.NewBuffer(wire)}
	r := NewReaderFrame(in, 4, protocol.RoleFilter, protocol.StreamStdin)

	gotIn := make([]byte, 8)
	_, err := io.ReadFull(r, gotIn)
	require.NoError(t, err)
	assert.Equal(t, "in-bytes", string(gotIn))
	assert.False(t, r.InFullyConsumed())

	// next Read observes in's terminator internally and transitions to data
	gotData, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "data-bytes", string(gotData))
	assert.True(t, r.InFullyConsumed())
	assert.Equal(t, protocol.StreamData, r.StreamType())
}

func TestReaderFrame_GetValuesAnsweredInline(t *testing.T) {
	var wire []byte
	query := protocol.WritePair(nil, []byte("FCGI_MAX_CONNS"), nil)
	wire = appendRecord(wire, protocol.TypeGetValues, protocol.NullRequestID, query)
	wire = appendRecord(wire, protocol.TypeStdin, 1, []byte("x"))
	wire = appendRecord(wire, protocol.TypeStdin, 1, nil)

	var out bytes.Buffer
	in := &loopback{read: bytes.NewBuffer(wire), write: &out}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	h, err := protocol.DecodeHeader(out.Bytes()[:8])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeGetValuesResult, h.Type)
}

func TestReaderFrame_UnknownManagementType(t *testing.T) {
	var wire []byte
	hdr := make([]byte, protocol.HeaderSize)
	protocol.EncodeHeader(hdr, protocol.RecordType(99), protocol.NullRequestID, 0, 0)
	wire = append(wire, hdr...)
	wire = appendRecord(wire, protocol.TypeStdin, 1, nil)

	var out bytes.Buffer
	in := &loopback{read: bytes.NewBuffer(wire), write: &out}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)

	_, err := io.ReadAll(r)
	require.NoError(t, err)

	h, err := protocol.DecodeHeader(out.Bytes()[:8])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeUnknownType, h.Type)
	assert.Equal(t, byte(99), out.Bytes()[8])
}

func TestReaderFrame_RejectsMultiplexedBeginRequest(t *testing.T) {
	var wire []byte
	body := make([]byte, protocol.BeginRequestBodySize)
	wire = appendRecord(wire, protocol.TypeBeginRequest, 2, body)
	wire = appendRecord(wire, protocol.TypeStdin, 1, nil)

	var out bytes.Buffer
	in := &loopback{read: bytes.NewBuffer(wire), write: &out}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)

	_, err := io.ReadAll(r)
	require.NoError(t, err)

	h, err := protocol.DecodeHeader(out.Bytes()[:8])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeEndRequest, h.Type)
	assert.Equal(t, uint16(2), h.RequestID)
}

func TestReaderFrame_ReadAfterCloseErrors(t *testing.T) {
	in := &nopCloseBuffer{}
	r := NewReaderFrame(in, 1, protocol.RoleResponder, protocol.StreamStdin)
	require.NoError(t, r.Close())
	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, errFrameClosed)
}

// loopback lets tests observe records the reader writes back (management
// responses, rejection end_request records) while still feeding it a
// fixed input sequence.
type loopback struct {
	read  *bytes.Buffer
	write *bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.read.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.write.Write(p) }
func (l *loopback) Close() error                { return nil }
