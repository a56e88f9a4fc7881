package common

import (
	"errors"
	"fmt"
	"testing"
)

// TestRegistryCreate checks that every schema code yields its own kind carrying the message
func TestRegistryCreate(t *testing.T) {
	r := NewErrorRegistry(ErrorSchema())
	seen := make(map[ErrorKind]ErrorCode)

	for _, code := range r.Codes() {
		err := r.Create(code, "msg")
		if err.Msg != "msg" {
			t.Errorf("code %d: message = %q, want %q", code, err.Msg, "msg")
		}
		if err.Kind.Code != code || err.Code != code {
			t.Errorf("code %d resolved to kind %v", code, err.Kind)
		}
		if other, dup := seen[err.Kind]; dup {
			t.Errorf("codes %d and %d share kind %v", code, other, err.Kind)
		}
		seen[err.Kind] = code
	}

	if len(seen) != len(ErrorSchema()) {
		t.Errorf("registry has %d kinds, schema has %d codes", len(seen), len(ErrorSchema()))
	}
}

func TestRegistryUnknownCode(t *testing.T) {
	r := NewErrorRegistry(ErrorSchema())

	err := r.Create(ErrorCode(4242), "strange")
	if err.Kind.Code != Unknown {
		t.Fatalf("unregistered code resolved to %v, want Unknown", err.Kind)
	}
	if err.Code != 4242 {
		t.Errorf("raw code not preserved: %d", err.Code)
	}
	if !errors.Is(err, ErrUnknown) {
		t.Error("unregistered code does not match ErrUnknown")
	}
	if r.Has(4242) {
		t.Error("Has reports an unregistered code")
	}
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("destroy t: %w", NewError(ContainerDoesNotExist, "container t not found"))

	if !errors.Is(err, ErrContainerDoesNotExist) {
		t.Error("wrapped error does not match its sentinel")
	}
	if errors.Is(err, ErrContainerAlreadyExists) {
		t.Error("error matches a different kind")
	}
	if CodeOf(err) != ContainerDoesNotExist {
		t.Errorf("CodeOf = %v", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != Unknown || CodeOf(nil) != Success {
		t.Error("CodeOf misclassifies foreign or nil errors")
	}
}

func TestTransportErrorClasses(t *testing.T) {
	cause := errors.New("connection refused")
	conn := WrapError(SocketUnavailable, cause, "cannot connect to %s", "/run/test.sock")
	timeout := WrapError(SocketTimeout, nil, "deadline exceeded")

	if !IsConnectionError(conn) || IsTimeout(conn) {
		t.Error("connection error misclassified")
	}
	if !IsTimeout(timeout) || IsConnectionError(timeout) {
		t.Error("timeout error misclassified")
	}
	if !errors.Is(conn, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestErrorCodeString(t *testing.T) {
	if ContainerDoesNotExist.String() != "ContainerDoesNotExist" {
		t.Errorf("String() = %s", ContainerDoesNotExist.String())
	}
	if ErrorCode(77).String() != "Unknown(77)" {
		t.Errorf("String() = %s", ErrorCode(77).String())
	}
}
