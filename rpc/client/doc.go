// Package client implements the client of the container daemon: a Connection that
// carries one request at a time over the daemon socket, and lightweight handles for
// the objects the daemon manages.
//
// The package focuses on:
//   - Exactly one framed exchange per operation, with a single deadline covering
//     connect, send and receive
//   - Reconnecting on demand, but never resending a request that may have reached
//     the daemon
//   - Turning non-success status codes into *common.Error values through the
//     ErrorRegistry
//
// Key Components:
//
//   - Connection: owns the transport, the serializer and the lock that keeps
//     exchanges from interleaving. All daemon operations are methods on it.
//
//   - Container: name plus connection. Every read goes to the daemon.
//
//   - Volume, Layer, Storage, MetaStorage: handles with a cached record that
//     Update replaces atomically, so readers of a Snapshot never see a mix of
//     old and new fields.
//
//   - Subscription: a background waiter reporting state changes through a callback.
//
// Usage Example:
//
//	conn, err := client.Dial(common.DefaultClientConfig())
//	if err != nil {
//		return err
//	}
//	defer conn.Disconnect()
//
//	ct, err := conn.Run("job", map[string]string{"command": "sleep 5"})
//	if err != nil {
//		return err
//	}
//	if _, err := ct.Wait(-1); err != nil {
//		return err
//	}
//	status, _ := ct.ExitStatus()
//
// Thread Safety:
//
//	A Connection may be shared by goroutines, but their calls are executed one
//	after another. Use one Connection per goroutine for parallel throughput.
//	Handles are plain references and safe to share.
package client
