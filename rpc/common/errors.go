package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// ErrorCode is the numeric status carried by every daemon response
type ErrorCode int32

const (
	Success                ErrorCode = 0
	Unknown                ErrorCode = 1
	InvalidMethod          ErrorCode = 2
	ContainerAlreadyExists ErrorCode = 3
	ContainerDoesNotExist  ErrorCode = 4
	InvalidProperty        ErrorCode = 5
	InvalidData            ErrorCode = 6
	InvalidValue           ErrorCode = 7
	InvalidState           ErrorCode = 8
	NotSupported           ErrorCode = 9
	ResourceNotAvailable   ErrorCode = 10
	Permission             ErrorCode = 11
	VolumeAlreadyExists    ErrorCode = 12
	VolumeNotFound         ErrorCode = 13
	NoSpace                ErrorCode = 14
	Busy                   ErrorCode = 15
	VolumeAlreadyLinked    ErrorCode = 16
	VolumeNotLinked        ErrorCode = 17
	LayerAlreadyExists     ErrorCode = 18
	LayerNotFound          ErrorCode = 19
	NoValue                ErrorCode = 20
	VolumeNotReady         ErrorCode = 21
	InvalidCommand         ErrorCode = 22
	LostError              ErrorCode = 23
	DeviceNotFound         ErrorCode = 24
	InvalidPath            ErrorCode = 25
	InvalidNetworkAddress  ErrorCode = 26
	PortoFrozen            ErrorCode = 27
	LabelNotFound          ErrorCode = 28
	InvalidLabel           ErrorCode = 29
	HelperError            ErrorCode = 30
	HelperFatalError       ErrorCode = 31
	NotFound               ErrorCode = 404
	SocketError            ErrorCode = 502
	SocketUnavailable      ErrorCode = 503
	SocketTimeout          ErrorCode = 504
	Taint                  ErrorCode = 666
	Queued                 ErrorCode = 1000
)

// errorSchema is the error enumeration of the daemon protocol.
// The registry derives one error kind per entry; adding a code here is enough.
var errorSchema = map[ErrorCode]string{
	Success:                "Success",
	Unknown:                "Unknown",
	InvalidMethod:          "InvalidMethod",
	ContainerAlreadyExists: "ContainerAlreadyExists",
	ContainerDoesNotExist:  "ContainerDoesNotExist",
	InvalidProperty:        "InvalidProperty",
	InvalidData:            "InvalidData",
	InvalidValue:           "InvalidValue",
	InvalidState:           "InvalidState",
	NotSupported:           "NotSupported",
	ResourceNotAvailable:   "ResourceNotAvailable",
	Permission:             "Permission",
	VolumeAlreadyExists:    "VolumeAlreadyExists",
	VolumeNotFound:         "VolumeNotFound",
	NoSpace:                "NoSpace",
	Busy:                   "Busy",
	VolumeAlreadyLinked:    "VolumeAlreadyLinked",
	VolumeNotLinked:        "VolumeNotLinked",
	LayerAlreadyExists:     "LayerAlreadyExists",
	LayerNotFound:          "LayerNotFound",
	NoValue:                "NoValue",
	VolumeNotReady:         "VolumeNotReady",
	InvalidCommand:         "InvalidCommand",
	LostError:              "LostError",
	DeviceNotFound:         "DeviceNotFound",
	InvalidPath:            "InvalidPath",
	InvalidNetworkAddress:  "InvalidNetworkAddress",
	PortoFrozen:            "PortoFrozen",
	LabelNotFound:          "LabelNotFound",
	InvalidLabel:           "InvalidLabel",
	HelperError:            "HelperError",
	HelperFatalError:       "HelperFatalError",
	NotFound:               "NotFound",
	SocketError:            "SocketError",
	SocketUnavailable:      "SocketUnavailable",
	SocketTimeout:          "SocketTimeout",
	Taint:                  "Taint",
	Queued:                 "Queued",
}

// ErrorSchema returns a copy of the known error enumeration (code -> name)
func ErrorSchema() map[ErrorCode]string {
	schema := make(map[ErrorCode]string, len(errorSchema))
	for code, name := range errorSchema {
		schema[code] = name
	}
	return schema
}

// String returns the schema name of the code, or "Unknown(<n>)" for codes outside the schema
func (c ErrorCode) String() string {
	if name, ok := errorSchema[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int32(c))
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// ErrorKind identifies one class of failure. Kinds are created by the ErrorRegistry.
type ErrorKind struct {
	Code ErrorCode
	Name string
}

// Error is the single error type returned for daemon-reported and transport failures.
// Kind is the resolved class, Code the raw code seen on the wire (they differ only for
// codes the registry does not know).
type Error struct {
	Kind  ErrorKind
	Code  ErrorCode
	Msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != e.Kind.Code {
		return fmt.Sprintf("%s (code %d): %s", e.Kind.Name, int32(e.Code), e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Name, e.Msg)
}

// Unwrap returns the underlying system error of transport failures, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind, so errors.Is(err, ErrContainerDoesNotExist) works
// for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind.Code == e.Kind.Code
}

// NewError creates an error of a known kind from the default registry
func NewError(code ErrorCode, msg string) *Error {
	return DefaultErrorRegistry.Create(code, msg)
}

// WrapError creates an error of a known kind carrying an underlying cause
func WrapError(code ErrorCode, cause error, format string, args ...interface{}) *Error {
	e := DefaultErrorRegistry.Create(code, fmt.Sprintf(format, args...))
	e.cause = cause
	return e
}

// CodeOf returns the kind code of err, Success for nil and Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Code
	}
	return Unknown
}

// IsTimeout reports whether err is a deadline failure
func IsTimeout(err error) bool {
	return CodeOf(err) == SocketTimeout
}

// IsConnectionError reports whether err is a transport failure other than a timeout
func IsConnectionError(err error) bool {
	code := CodeOf(err)
	return code == SocketError || code == SocketUnavailable
}

// --------------------------------------------------------------------------
// Sentinels (for errors.Is)
// --------------------------------------------------------------------------

var (
	ErrUnknown                = sentinel(Unknown)
	ErrInvalidMethod          = sentinel(InvalidMethod)
	ErrContainerAlreadyExists = sentinel(ContainerAlreadyExists)
	ErrContainerDoesNotExist  = sentinel(ContainerDoesNotExist)
	ErrInvalidProperty        = sentinel(InvalidProperty)
	ErrInvalidValue           = sentinel(InvalidValue)
	ErrInvalidState           = sentinel(InvalidState)
	ErrNotSupported           = sentinel(NotSupported)
	ErrResourceNotAvailable   = sentinel(ResourceNotAvailable)
	ErrPermission             = sentinel(Permission)
	ErrVolumeAlreadyExists    = sentinel(VolumeAlreadyExists)
	ErrVolumeNotFound         = sentinel(VolumeNotFound)
	ErrBusy                   = sentinel(Busy)
	ErrVolumeAlreadyLinked    = sentinel(VolumeAlreadyLinked)
	ErrVolumeNotLinked        = sentinel(VolumeNotLinked)
	ErrLayerAlreadyExists     = sentinel(LayerAlreadyExists)
	ErrLayerNotFound          = sentinel(LayerNotFound)
	ErrNoValue                = sentinel(NoValue)
	ErrLabelNotFound          = sentinel(LabelNotFound)
	ErrNotFound               = sentinel(NotFound)
	ErrSocketError            = sentinel(SocketError)
	ErrSocketUnavailable      = sentinel(SocketUnavailable)
	ErrSocketTimeout          = sentinel(SocketTimeout)
)

func sentinel(code ErrorCode) *Error {
	return &Error{
		Kind: ErrorKind{Code: code, Name: errorSchema[code]},
		Code: code,
	}
}
