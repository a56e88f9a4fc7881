// Package cmd implements the command-line interface of goporto. It provides a
// hierarchical command structure for talking to the container daemon and for
// running an in-memory mock daemon.
//
// The package is organized into several subpackages:
//
//   - ct: Container operations (create, run, get, set, wait, ...) and the perf benchmark
//   - volume: Volume, layer and storage operations
//   - serve: Starts the in-memory mock daemon on a unix socket
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable GOPORTO_<FLAG>, also from
// .env and .env.local files. See goporto -help for a list of all commands.
package cmd
