package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginRequestBody_RoundTrip(t *testing.T) {
	buf := [BeginRequestBodySize]byte{0, 1, byte(FlagKeepConn), 0, 0, 0, 0, 0}
	b, err := DecodeBeginRequestBody(buf[:])
	require.NoError(t, err)
	assert.Equal(t, RoleResponder, b.Role)
	assert.True(t, b.KeepConn())
}

func TestReadBeginRequestBody(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 3, 0, 0, 0, 0, 0, 0})
	b, err := ReadBeginRequestBody(&buf)
	require.NoError(t, err)
	assert.Equal(t, RoleFilter, b.Role)
	assert.False(t, b.KeepConn())
}

func TestWriteEndRequestRecord_WireBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEndRequestRecord(&buf, 1, 0, StatusRequestComplete))
	want := []byte{
		0x01, 0x03, 0x00, 0x01, 0x00, 0x08, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, buf.Bytes())
}

func TestWriteUnknownTypeRecord_WireBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUnknownTypeRecord(&buf, RecordType(99)))
	want := []byte{
		0x01, 0x0B, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00,
		0x63, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, buf.Bytes())
}
