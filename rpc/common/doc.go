// Package common provides the data structures shared by all goporto packages:
// the daemon message schema, the error taxonomy, configuration and logging.
//
// Key Components:
//
//   - Request / Response: the envelopes of one exchange. A Request carries exactly
//     one operation; a Response carries a status code, an optional message and the
//     operation result. Field numbers for the protobuf wire format are declared in
//     struct tags and consumed by the serializer package.
//
//   - ErrorCode / Error: the numeric status domain of the protocol and the single
//     error type used to report failures. Errors of the same kind match with
//     errors.Is against the exported sentinels (ErrContainerDoesNotExist, ...).
//
//   - ErrorRegistry: an immutable {code -> kind} table built once from the error
//     enumeration. Unknown codes resolve to the Unknown kind.
//
//   - ClientConfig / ServerConfig: connection parameters (socket path, default
//     timeout, connect backoff) and framed server settings.
//
//   - Logger: custom formatting for the dragonboat logger facade used throughout
//     the module.
package common
