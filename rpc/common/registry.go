package common

import "sort"

// DefaultErrorRegistry is built once from the protocol's error enumeration
var DefaultErrorRegistry = NewErrorRegistry(errorSchema)

// unknownKind is the fallback for codes missing from the schema
var unknownKind = ErrorKind{Code: Unknown, Name: errorSchema[Unknown]}

// ErrorRegistry resolves wire status codes to error kinds.
// It is immutable after construction and safe for concurrent use.
type ErrorRegistry struct {
	kinds map[ErrorCode]ErrorKind
}

// NewErrorRegistry builds a registry with one kind per schema entry
func NewErrorRegistry(schema map[ErrorCode]string) *ErrorRegistry {
	kinds := make(map[ErrorCode]ErrorKind, len(schema))
	for code, name := range schema {
		kinds[code] = ErrorKind{Code: code, Name: name}
	}
	return &ErrorRegistry{kinds: kinds}
}

// Kind returns the kind registered for code, or the Unknown kind
func (r *ErrorRegistry) Kind(code ErrorCode) ErrorKind {
	if kind, ok := r.kinds[code]; ok {
		return kind
	}
	if kind, ok := r.kinds[Unknown]; ok {
		return kind
	}
	return unknownKind
}

// Has reports whether code has its own kind
func (r *ErrorRegistry) Has(code ErrorCode) bool {
	_, ok := r.kinds[code]
	return ok
}

// Create returns a new error of the kind registered for code carrying msg.
// The raw code is preserved even when it resolves to the Unknown kind.
func (r *ErrorRegistry) Create(code ErrorCode, msg string) *Error {
	return &Error{
		Kind: r.Kind(code),
		Code: code,
		Msg:  msg,
	}
}

// Codes returns all registered codes in ascending order
func (r *ErrorRegistry) Codes() []ErrorCode {
	codes := make([]ErrorCode, 0, len(r.kinds))
	for code := range r.kinds {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
