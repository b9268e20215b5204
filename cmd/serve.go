package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tillgo/fastcgi/config"
	"github.com/tillgo/fastcgi/connection"
	"github.com/tillgo/fastcgi/diagnostics"
	"github.com/tillgo/fastcgi/listener"
	"github.com/tillgo/fastcgi/protocol"
	"github.com/tillgo/fastcgi/transport"
)

var (
	serveConfigPath string
	serveWorkers    int
	serveStatsFile  string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run a minimal FastCGI responder (demonstrates the library end to end)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to endpoint YAML config (required)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 8, "number of goroutines concurrently calling Accept")
	serveCmd.Flags().StringVar(&serveStatsFile, "stats-file", "fcgid-stats.json", "where the diagnostics snapshot is persisted")
	serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	ep, err := config.LoadEndpointConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	raw, err := dial(ctx, *ep)
	if err != nil {
		return fmt.Errorf("bind endpoint: %w", err)
	}

	l := listener.New(raw, log.Logger)
	if err := l.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer l.Close()

	var counters diagnostics.Counters
	done := make(chan struct{})
	for i := 0; i < serveWorkers; i++ {
		go acceptLoop(l, &counters, done)
	}

	log.Info().Str("kind", string(ep.Kind)).Int("workers", serveWorkers).Msg("fcgid serving")

	<-ctx.Done()
	close(done)
	l.Close()

	return counters.Snapshot().WriteFile(serveStatsFile)
}

func dial(ctx context.Context, ep config.Endpoint) (net.Listener, error) {
	switch ep.Kind {
	case config.KindTCP:
		return transport.ListenTCP(ctx, ep.TCPAddress())
	case config.KindUnix:
		return transport.ListenUnix(ctx, ep.Path)
	case config.KindNamedPipe:
		return transport.ListenNamedPipe(ctx, ep.Name)
	default:
		return nil, fmt.Errorf("unsupported endpoint kind %q", ep.Kind)
	}
}

func acceptLoop(l *listener.Listener, counters *diagnostics.Counters, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		c, err := l.Accept()
		if err != nil {
			counters.HandshakeFailed()
			select {
			case <-done:
				return
			default:
				continue
			}
		}
		counters.ConnectionAccepted()
		serveRequest(c)
		counters.ConnectionClosed()
	}
}

// serveRequest implements the demo responder: echo request method, URI,
// content length, and the in body back on out.
func serveRequest(c *connection.Connection) {
	defer c.Close()

	method, _ := c.Parameter("REQUEST_METHOD")
	uri, _ := c.Parameter("REQUEST_URI")
	contentLength, _ := c.Parameter("CONTENT_LENGTH")

	fmt.Fprintf(c.Out(), "%s %s (content-length=%s)\n", method, uri, contentLength)

	if c.Role() != protocol.RoleAuthorizer {
		io.Copy(c.Out(), c.In())
	}

	c.SetApplicationStatus(0)
}
