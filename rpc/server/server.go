package server

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/serializer"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"os/signal"
	"syscall"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and the adapter answering requests as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewProtobufSerializer(),
//		daemontest.New(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	adapter IRPCServerAdapter,
) *RPCServer {
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    adapter,
	}
}

// RPCServer decodes framed requests, lets the adapter answer them and encodes the responses
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
}

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var respMsg *common.Response

		// Decode the request
		msg := &common.Request{}
		if err := s.serializer.Deserialize(req, msg); err != nil {
			respMsg = common.NewErrorResponse(common.InvalidData, fmt.Sprintf("failed to deserialize request: %s", err))
		} else if msg.Kind() == "" {
			respMsg = common.NewErrorResponse(common.InvalidMethod, "request carries no operation")
		} else {
			// Let the adapter handle the request
			respMsg = s.adapter.Handle(msg)
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			Logger.Errorf("Failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(common.NewErrorResponse(common.Unknown, fmt.Sprintf("failed to serialize response: %s", err)))
		}
		return val
	})
}

// Start starts the transport layer and returns once the endpoint accepts connections
func (s *RPCServer) Start() error {
	Logger.Infof("%s", s.config.String())
	s.registerTransportHandler()
	return s.transport.Listen(s.config)
}

// Serve starts the server and blocks until SIGINT or SIGTERM, then closes it
func (s *RPCServer) Serve() error {
	if err := s.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	sig := <-stop
	Logger.Infof("Received %s, shutting down", sig)
	return s.Close()
}

// Close stops the transport and waits for running handlers
func (s *RPCServer) Close() error {
	return s.transport.Close()
}
