package streambuf

import (
	"fmt"
	"sync"

	"github.com/tillgo/fastcgi/protocol"
)

// DefaultReaderBufferSize is the backing buffer size used by readers of
// params/in/data (spec.md §4.3: "the reader uses 16 KiB").
const DefaultReaderBufferSize = 16 * 1024

// DefaultWriterBufferSize is the backing buffer size used by writers of
// out/err (spec.md §4.3: "writers use 64 KiB minus 8").
const DefaultWriterBufferSize = 64*1024 - 8

// minBufferSize and maxBufferSize bound the caller-supplied buffer size
// for the non-default constructors (spec.md §3).
const (
	minBufferSize = 2048
	maxBufferSize = 65528
)

func validateBufferSize(size int) error {
	if size < minBufferSize || size > maxBufferSize {
		return protocol.NewInvalidArgumentError("buffer size",
			fmt.Errorf("must be in [%d,%d], got %d", minBufferSize, maxBufferSize, size))
	}
	if size%8 != 0 {
		return protocol.NewInvalidArgumentError("buffer size",
			fmt.Errorf("must be a multiple of 8, got %d", size))
	}
	return nil
}

var readerBufPool = sync.Pool{
	New: func() any { return make([]byte, DefaultReaderBufferSize) },
}

var writerBufPool = sync.Pool{
	New: func() any { return make([]byte, DefaultWriterBufferSize) },
}

func getReaderBuf() []byte { return readerBufPool.Get().([]byte) }

func putReaderBuf(b []byte) {
	if len(b) == DefaultReaderBufferSize {
		readerBufPool.Put(b) //nolint:staticcheck // size checked above
	}
}

func getWriterBuf() []byte { return writerBufPool.Get().([]byte) }

func putWriterBuf(b []byte) {
	if len(b) == DefaultWriterBufferSize {
		writerBufPool.Put(b)
	}
}
