package transport

import (
	"context"
	"fmt"
	"net"
	"os"
)

// ListenUnix binds a Unix domain socket listener at path. Any stale
// socket file left behind by a previous, ungracefully-terminated run is
// removed first. Buffer-size tuning applies best-effort via Control;
// TCP_NODELAY has no UDS equivalent.
func ListenUnix(ctx context.Context, path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale unix socket %s: %w", path, err)
	}
	lc := net.ListenConfig{Control: setSocketOptions}
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	return ln, nil
}
