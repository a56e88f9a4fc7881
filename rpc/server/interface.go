package server

import (
	"github.com/ValentinKolb/goporto/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it should be set in the response (Error and ErrorMsg)
	// Handle may block, e.g. for wait requests; it is called sequentially per connection
	Handle(req *common.Request) (resp *common.Response)
}
