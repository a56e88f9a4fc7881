// Package daemontest provides an in-memory container daemon for tests and local
// experiments. It answers the same wire protocol as the real daemon on a Unix socket,
// so the client can be exercised end to end without root privileges.
//
// The daemon emulates:
//   - the container tree with the states stopped, running, paused, dead and meta
//   - properties with read-only, static and typed values
//   - blocking and event based waits (ChangedAfter watermarks)
//   - volumes with links, layers, storages and meta storages per place
//
// Commands are not executed. A command "true" exits with status 0 and "false" with
// status 256 right after start; any other command keeps running until stopped or killed.
//
// Example usage:
//
//	d, config := daemontest.Start(t, serializer.NewProtobufSerializer())
//	conn := client.NewConnection(config, unix.NewUnixClientTransport(), serializer.NewProtobufSerializer(), nil)
//	defer conn.Disconnect()
package daemontest
