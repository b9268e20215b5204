package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEndpoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ep      Endpoint
		wantErr bool
	}{
		{"valid tcp", Endpoint{Kind: KindTCP, Address: "0.0.0.0", Port: 9000, Backlog: 16}, false},
		{"tcp missing port", Endpoint{Kind: KindTCP, Backlog: 16}, true},
		{"tcp missing backlog", Endpoint{Kind: KindTCP, Port: 9000}, true},
		{"valid unix", Endpoint{Kind: KindUnix, Path: "/tmp/fcgi.sock", Backlog: 16}, false},
		{"unix missing path", Endpoint{Kind: KindUnix, Backlog: 16}, true},
		{"valid namedpipe", Endpoint{Kind: KindNamedPipe, Name: "fcgi"}, false},
		{"namedpipe missing name", Endpoint{Kind: KindNamedPipe}, true},
		{"unknown kind", Endpoint{Kind: "quic"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ep.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEndpoint_TCPValidity_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		backlog := rapid.IntRange(1, 1024).Draw(t, "backlog")
		ep := Endpoint{Kind: KindTCP, Address: "0.0.0.0", Port: port, Backlog: backlog}
		if err := ep.Validate(); err != nil {
			t.Fatalf("expected valid tcp endpoint, got error: %v", err)
		}
	})
}
