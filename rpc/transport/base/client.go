package base

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.). It holds
// a single connection, the server answers requests strictly in order, so
// Send serializes callers.
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	mu   sync.Mutex // serializes requests and protects conn
	conn net.Conn
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	return t.dial()
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	if timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %v", err)
		}
	}

	if err := writeFrame(t.conn, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}

	resp, err := readFrame(t.conn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	return resp, nil
}

func (t *clientTransport) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	return t.dial()
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial establishes the connection. Callers must hold t.mu.
func (t *clientTransport) dial() error {
	conn, err := t.connector.Connect(t.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", t.config.Endpoint, err)
	}
	t.conn = conn
	logger.Debugf("connected to %s via %s", t.config.Endpoint, t.connector.GetName())
	return nil
}
