package base

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/transport"
)

var logger = logging.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	factory    transport.SessionFactory
	config     common.ServerConfig
	listener   net.Listener
	bufferPool *sync.Pool

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

const bufferSize = 64 * 1024 // 64 KB

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new session-oriented server transport
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     make(map[net.Conn]struct{}),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterSessionFactory(factory transport.SessionFactory) {
	t.factory = factory
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.factory == nil {
		return fmt.Errorf("no session factory registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	t.listener = listener

	logger.Infof("starting %s server on %s", t.connector.GetName(), config.Endpoint)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			t.mu.Lock()
			stopping := t.stopping
			t.mu.Unlock()
			if stopping {
				return nil
			}
			logger.Errorf("accept error: %v", err)
			continue
		}

		t.mu.Lock()
		if t.stopping {
			t.mu.Unlock()
			conn.Close()
			return nil
		}
		t.conns[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Shutdown() error {
	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		return nil
	}
	t.stopping = true
	listener := t.listener
	for conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	// Wait for all sessions to finish
	t.wg.Wait()
	logger.Infof("%s server stopped", t.connector.GetName())
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection feeds the frames of one connection to its session, one
// at a time. The response to each frame is written before the next frame
// is read, so sessions never see interleaved requests.
func (t *serverTransport) handleConnection(conn net.Conn) {
	session := t.factory()

	defer func() {
		session.Close()
		conn.Close()
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		t.wg.Done()
	}()

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				logger.Errorf("failed to set read deadline: %v", err)
				return
			}
		}

		// Get a buffer from the pool
		buf := t.bufferPool.Get().([]byte)

		req, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			if err == io.EOF {
				logger.Debugf("connection closed by client")
			} else {
				logger.Debugf("error reading request: %v", err)
			}
			return
		}

		start := time.Now()
		resp := session.Handle(req)
		t.bufferPool.Put(buf)
		logger.Debugf("processed request in %s", time.Since(start))

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				logger.Errorf("failed to set write deadline: %v", err)
				return
			}
		}

		if err := writeFrame(conn, resp); err != nil {
			logger.Errorf("failed to write response: %v", err)
			return
		}
	}
}
