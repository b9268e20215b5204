package transport

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP binds a TCP listener at address (host:port), tuning accepted
// sockets' buffer sizes and TCP_NODELAY via Control, grounded on the
// teacher's server/traffic/tcp.go + sockopt_unix.go.
func ListenTCP(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{Control: setSocketOptions}
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", address, err)
	}
	return ln, nil
}
