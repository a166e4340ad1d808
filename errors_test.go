package canonkv

import (
	"errors"
	"strings"
	"testing"
)

func TestCodecError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := codecErrf(KindOutOfRange, "fields[2]", "u8", "value %d overflows", 999)
	err.Err = inner
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	s := err.Error()
	for _, want := range []string{"out of range", "fields[2]", "u8", "999", "inner"} {
		if !strings.Contains(s, want) {
			t.Fatalf("err.Error() = %q, wanted to contain %q", s, want)
		}
	}
}

func TestStoreError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := storeErrf(KindKeyNotFound, "users", []byte("alice"), inner, "lookup failed")
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	s := err.Error()
	for _, want := range []string{"key not found", "users", "alice", "lookup failed", "inner"} {
		if !strings.Contains(s, want) {
			t.Fatalf("err.Error() = %q, wanted to contain %q", s, want)
		}
	}
}

func TestEngineError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := engineErrf("put", inner)
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	if s := err.Error(); !strings.Contains(s, "put") || !strings.Contains(s, "disk full") {
		t.Fatalf("err.Error() = %q, wanted op/inner", s)
	}
}

func TestPanicError_Error(t *testing.T) {
	err := &PanicError{Reason: "boom"}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err.Error() = %q, wanted to contain boom", err.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	if ErrorKind(999).String() != "unknown" {
		t.Fatalf("unknown kind should stringify to %q", "unknown")
	}
	if KindInvalidUtf8.String() != "invalid utf8" {
		t.Fatalf("KindInvalidUtf8.String() = %q", KindInvalidUtf8.String())
	}
}
