package server

import (
	"time"

	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/ValentinKolb/smolDB/lib/registry"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/encryption"
	"github.com/ValentinKolb/smolDB/rpc/serializer"
	"github.com/ValentinKolb/smolDB/rpc/transport"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RPCServer ties the registry, the serializer and a transport together: it
// creates one session per accepted connection and dispatches every decoded
// message to the registry.
type RPCServer struct {
	config     common.ServerConfig
	registry   registry.IRegistry
	serializer serializer.IRPCSerializer
	transport  transport.IRPCServerTransport
	keys       *encryption.KeyPair
	logger     *zap.SugaredLogger
}

// NewRPCServer creates a server from the given configuration. The storage
// backend, the registry and the server key pair are created here, the
// serializer and transport are injected.
func NewRPCServer(
	config common.ServerConfig,
	srlzr serializer.IRPCSerializer,
	trnsprt transport.IRPCServerTransport,
) (*RPCServer, error) {
	if config.LogLevel != "" {
		if err := logging.SetLevel(config.LogLevel); err != nil {
			return nil, err
		}
	}

	var storage registry.Storage
	if !config.InMemory {
		var err error
		storage, err = registry.NewFileStorage(config.DataDir)
		if err != nil {
			return nil, err
		}
	}

	reg, err := registry.New(registry.Config{
		Storage:       storage,
		SuperAdmins:   config.SuperAdmins,
		SweepInterval: time.Duration(config.SweepIntervalSecond) * time.Second,
		NoEvict:       config.NoEvict,
	})
	if err != nil {
		return nil, err
	}

	keys, err := encryption.NewKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create server key pair")
	}

	s := &RPCServer{
		config:     config,
		registry:   reg,
		serializer: srlzr,
		transport:  trnsprt,
		keys:       keys,
		logger:     logging.GetLogger("server"),
	}
	trnsprt.RegisterSessionFactory(func() transport.ISession {
		return newSession(s)
	})
	return s, nil
}

// Serve starts the transport and blocks until Shutdown is called.
func (s *RPCServer) Serve() error {
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport, waits for open sessions and flushes all
// dirty databases.
func (s *RPCServer) Shutdown() error {
	s.logger.Info("shutting down")
	if err := s.transport.Shutdown(); err != nil {
		s.logger.Errorw("transport shutdown failed", "error", err)
	}
	return s.registry.Close()
}
