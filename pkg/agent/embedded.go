package agent

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedServer wraps an in-process NATS server so the agent boundary
// works without an external broker, both in tests and in single-binary
// deployments.
type EmbeddedServer struct {
	server *server.Server
	url    string
}

// StartEmbeddedServer starts an in-process NATS server on a random
// port. The gateway only needs core request/reply, so JetStream stays
// off.
func StartEmbeddedServer() (*EmbeddedServer, error) {
	opts := &server.Options{
		Host: "127.0.0.1",
		Port: -1, // random port
	}

	s, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded server: %w", err)
	}

	go s.Start()

	if !s.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("embedded server not ready")
	}

	return &EmbeddedServer{
		server: s,
		url:    s.ClientURL(),
	}, nil
}

// URL returns the connection URL for the embedded server.
func (e *EmbeddedServer) URL() string {
	return e.url
}

// Shutdown stops the embedded server.
func (e *EmbeddedServer) Shutdown() {
	if e.server != nil {
		e.server.Shutdown()
		e.server.WaitForShutdown()
	}
}

// Connect opens a client connection to the embedded server.
func (e *EmbeddedServer) Connect() (*nats.Conn, error) {
	return nats.Connect(e.url)
}
