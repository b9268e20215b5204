package config

import "fmt"

// Kind enumerates the endpoint kinds spec.md §6 lists as externally
// supplied configuration: the core only plumbs these through, it never
// parses them.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindUnix      Kind = "unix"
	KindNamedPipe Kind = "namedpipe"
)

// Endpoint describes where a Listener binds. Exactly one of the
// kind-specific fields applies, selected by Kind.
type Endpoint struct {
	Kind Kind `yaml:"kind"`

	// TCP
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Backlog int    `yaml:"backlog,omitempty"`

	// Unix domain socket
	Path string `yaml:"path,omitempty"`

	// Windows named pipe
	Name string `yaml:"name,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

// Validate checks the fields required for Kind are present, per spec.md
// §6: "port > 0. Backlog required for TCP/UDS, absent for WNP."
func (e Endpoint) Validate() error {
	switch e.Kind {
	case KindTCP:
		if e.Port <= 0 {
			return fmt.Errorf("tcp endpoint: port must be > 0, got %d", e.Port)
		}
		if e.Backlog <= 0 {
			return fmt.Errorf("tcp endpoint: backlog must be > 0, got %d", e.Backlog)
		}
	case KindUnix:
		if e.Path == "" {
			return fmt.Errorf("unix endpoint: path is required")
		}
		if e.Backlog <= 0 {
			return fmt.Errorf("unix endpoint: backlog must be > 0, got %d", e.Backlog)
		}
	case KindNamedPipe:
		if e.Name == "" {
			return fmt.Errorf("namedpipe endpoint: name is required")
		}
	default:
		return fmt.Errorf("unknown endpoint kind %q", e.Kind)
	}
	return nil
}

// TCPAddress formats the address:port pair for net.Listen.
func (e Endpoint) TCPAddress() string {
	return fmt.Sprintf("%s:%d", e.Address, e.Port)
}
