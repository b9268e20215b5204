package streambuf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tillgo/fastcgi/protocol"
)

var errMalformedWire = errors.New("malformed wire content in test fixture")

type nopCloseBuffer struct {
	bytes.Buffer
}

func (nopCloseBuffer) Close() error { return nil }

func TestWriterFrame_SmallWriteFlushesOnClose(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 7, protocol.StreamStdout)

	n, err := w.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, out.Bytes(), "nothing flushed before close")

	require.NoError(t, w.Close())

	buf := out.Bytes()
	require.Len(t, buf, 24) // one content record (8 hdr + 2 content + 6 pad) + one empty terminator
	h, err := protocol.DecodeHeader(buf[:8])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeStdout, h.Type)
	assert.Equal(t, uint16(2), h.ContentLength)
	assert.Equal(t, uint8(6), h.PaddingLength)
	assert.Equal(t, "hi", string(buf[8:10]))

	th, err := protocol.DecodeHeader(buf[24-8:])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeStdout, th.Type)
	assert.Equal(t, uint16(0), th.ContentLength)
}

func TestWriterFrame_EmptyStderrClosesSilently(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 3, protocol.StreamStderr)
	require.NoError(t, w.Close())
	assert.Empty(t, out.Bytes(), "err stream never written to emits nothing")
}

func TestWriterFrame_StderrWrittenThenClosedEmitsTerminator(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 3, protocol.StreamStderr)
	_, err := w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NotEmpty(t, out.Bytes())
}

func TestWriterFrame_FlushesWhenBufferFills(t *testing.T) {
	var out nopCloseBuffer
	w, err := NewWriterFrameSize(&out, 1, protocol.StreamStdout, minBufferSize)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{'a'}, minBufferSize*2)
	_, err = w.Write(payload)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Bytes(), "at least one record flushed mid-write")
	require.NoError(t, w.Close())
}

func TestWriterFrame_CloseAndAppendCombinesIntoOneWrite(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 9, protocol.StreamStdout)
	_, err := w.Write([]byte("ok"))
	require.NoError(t, err)

	trailer := protocol.EncodeEndRequestRecord(9, 0, protocol.StatusRequestComplete)
	require.NoError(t, w.CloseAndAppend(trailer))

	buf := out.Bytes()
	// content record (16 bytes) + terminator (8 bytes) + trailer (16 bytes)
	assert.Len(t, buf, 16+8+16)
	assert.Equal(t, trailer, buf[len(buf)-16:])
}

func TestWriterFrame_WriteAfterCloseErrors(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 1, protocol.StreamStdout)
	require.NoError(t, w.Close())
	_, err := w.Write([]byte("x"))
	assert.ErrorIs(t, err, errFrameClosed)
}

func TestWriterFrame_DoubleCloseIsNoop(t *testing.T) {
	var out nopCloseBuffer
	w := NewWriterFrame(&out, 1, protocol.StreamStdout)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestNewWriterFrameSize_RejectsInvalidSizes(t *testing.T) {
	var out nopCloseBuffer
	_, err := NewWriterFrameSize(&out, 1, protocol.StreamStdout, 1024)
	assert.Error(t, err)
	_, err = NewWriterFrameSize(&out, 1, protocol.StreamStdout, 2049)
	assert.Error(t, err)
}

// TestWriterFrame_Property checks that, for any sequence of chunk writes
// up to the buffer's max content capacity, every byte written reaches the
// transport exactly once, in order, across however many records it takes.
func TestWriterFrame_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.SampledFrom([]int{minBufferSize, 4096, maxBufferSize}).Draw(t, "size")
		var out nopCloseBuffer
		w, err := NewWriterFrameSize(&out, 5, protocol.StreamStdout, size)
		require.NoError(t, err)

		var want bytes.Buffer
		chunkCount := rapid.IntRange(0, 20).Draw(t, "chunkCount")
		for i := 0; i < chunkCount; i++ {
			chunkLen := rapid.IntRange(0, 300).Draw(t, "chunkLen")
			c := rapid.SliceOfN(rapid.Byte(), chunkLen, chunkLen).Draw(t, "chunk")
			_, err := w.Write(c)
			require.NoError(t, err)
			want.Write(c)
		}
		require.NoError(t, w.Close())

		got, err := decodeStdoutContent(out.Bytes(), 5)
		if err != nil {
			t.Fatalf("decode wire content: %v", err)
		}
		if !bytes.Equal(want.Bytes(), got) {
			t.Fatalf("content mismatch: got %d bytes, want %d bytes", len(got), want.Len())
		}
	})
}

func decodeStdoutContent(wire []byte, requestID uint16) ([]byte, error) {
	var content bytes.Buffer
	for len(wire) > 0 {
		if len(wire) < 8 {
			return nil, errMalformedWire
		}
		h, err := protocol.DecodeHeader(wire[:8])
		if err != nil {
			return nil, err
		}
		if h.RequestID != requestID {
			return nil, errMalformedWire
		}
		wire = wire[8:]
		content.Write(wire[:h.ContentLength])
		wire = wire[int(h.ContentLength)+int(h.PaddingLength):]
		if h.ContentLength == 0 {
			break
		}
	}
	return content.Bytes(), nil
}
