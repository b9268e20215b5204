package transport

import (
	"context"
	"errors"
	"net"
)

// ErrNamedPipeUnsupported is returned by ListenNamedPipe. Go's standard
// library has no Windows named-pipe primitive, and no third-party
// named-pipe package is grounded in any example in the corpus, so this
// endpoint kind (declared in the configuration type per spec.md §6) has
// no working adapter here.
var ErrNamedPipeUnsupported = errors.New("fcgi: windows named pipe transport is not implemented")

// ListenNamedPipe always fails; see ErrNamedPipeUnsupported.
func ListenNamedPipe(_ context.Context, _ string) (net.Listener, error) {
	return nil, ErrNamedPipeUnsupported
}
