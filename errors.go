package canonkv

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a CodecError or StoreError without requiring the
// caller to string-match Error().
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Lower/Lift taxonomy, per the canonical ABI error set.
	KindTypeMismatch
	KindUnknownCase
	KindOutOfRange
	KindGraphError
	KindMemoryBounds
	KindUnknownDiscriminant
	KindInvalidUtf8
	KindInvalidBool
	KindInvalidChar
	KindUnknownFlagBit
	KindUnsupportedEnvelopeVersion

	// Store taxonomy.
	KindKeyspaceNotFound
	KindKeyspaceExists
	KindIncompatibleVersion
	KindNotInitialized
	KindAlreadyInitialized
	KindKeyNotFound
	KindIdlParseError
	KindTypeNotFound
	KindUnsupportedKind
	KindKeyInvalid
	KindLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type mismatch"
	case KindUnknownCase:
		return "unknown case"
	case KindOutOfRange:
		return "out of range"
	case KindGraphError:
		return "graph error"
	case KindMemoryBounds:
		return "memory bounds"
	case KindUnknownDiscriminant:
		return "unknown discriminant"
	case KindInvalidUtf8:
		return "invalid utf8"
	case KindInvalidBool:
		return "invalid bool"
	case KindInvalidChar:
		return "invalid char"
	case KindUnknownFlagBit:
		return "unknown flag bit"
	case KindUnsupportedEnvelopeVersion:
		return "unsupported envelope version"
	case KindKeyspaceNotFound:
		return "keyspace not found"
	case KindKeyspaceExists:
		return "keyspace exists"
	case KindIncompatibleVersion:
		return "incompatible version"
	case KindNotInitialized:
		return "not initialized"
	case KindAlreadyInitialized:
		return "already initialized"
	case KindKeyNotFound:
		return "key not found"
	case KindIdlParseError:
		return "idl parse error"
	case KindTypeNotFound:
		return "type not found"
	case KindUnsupportedKind:
		return "unsupported kind"
	case KindKeyInvalid:
		return "key invalid"
	case KindLimitExceeded:
		return "limit exceeded"
	default:
		return "unknown"
	}
}

// CodecError is returned by Lower and Lift. Path is a dotted/bracketed
// breadcrumb ("fields[2].items[0]") toward the offending value.
type CodecError struct {
	Kind ErrorKind
	Path string
	Type string
	Msg  string
	Err  error
}

func codecErrf(kind ErrorKind, path string, typ string, format string, args ...any) *CodecError {
	return &CodecError{Kind: kind, Path: path, Type: typ, Msg: fmt.Sprintf(format, args...)}
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Kind.String())
	if e.Path != "" {
		buf.WriteString(" at ")
		buf.WriteString(e.Path)
	}
	if e.Type != "" {
		buf.WriteString(" (")
		buf.WriteString(e.Type)
		buf.WriteByte(')')
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// StoreError is returned by TypedStore operations, with Keyspace/Key in
// place of edb's TableError's {Table, Index, Key}.
type StoreError struct {
	Kind     ErrorKind
	Keyspace string
	Key      []byte
	Msg      string
	Err      error
}

func storeErrf(kind ErrorKind, keyspace string, key []byte, err error, format string, args ...any) *StoreError {
	return &StoreError{Kind: kind, Keyspace: keyspace, Key: key, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Kind.String())
	if e.Keyspace != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Keyspace)
	}
	if e.Key != nil {
		buf.WriteByte('/')
		buf.Write(e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// EngineError wraps whatever the underlying OrderedEngine returned, keeping
// engine-specific error types (bbolt, sqlite, in-memory) out of callers'
// error-matching logic.
type EngineError struct {
	Op  string
	Err error
}

func engineErrf(op string, err error) *EngineError {
	return &EngineError{Op: op, Err: err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}
