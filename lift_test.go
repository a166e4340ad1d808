package canonkv

import (
	"errors"
	"testing"
)

func TestLiftInvalidBool(t *testing.T) {
	g := newGraphBuilder().Build()
	_, err := Lift(g, RefBool(), []byte{2}, NewLinearMemory())
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindInvalidBool {
		t.Fatalf("err = %v, wanted InvalidBool", err)
	}
}

func TestLiftInvalidChar(t *testing.T) {
	g := newGraphBuilder().Build()
	buf := fixedBuf{Buf: make([]byte, 4)}
	buf.putUint32(0, 0x00110000) // past the valid Unicode scalar range
	_, err := Lift(g, RefChar(), buf.Buf, NewLinearMemory())
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindInvalidChar {
		t.Fatalf("err = %v, wanted InvalidChar", err)
	}
}

func TestLiftInvalidUtf8(t *testing.T) {
	g := newGraphBuilder().Build()
	mem := NewLinearMemory()
	ptr := mem.Allocate(2, 1)
	mem.Write(ptr, []byte{0xFF, 0xFE})
	buf := fixedBuf{Buf: make([]byte, 8)}
	buf.putUint32(0, ptr)
	buf.putUint32(4, 2)
	_, err := Lift(g, RefString(), buf.Buf, mem)
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindInvalidUtf8 {
		t.Fatalf("err = %v, wanted InvalidUtf8", err)
	}
}

func TestLiftMemoryBoundsOnString(t *testing.T) {
	g := newGraphBuilder().Build()
	mem := NewLinearMemory()
	buf := fixedBuf{Buf: make([]byte, 8)}
	buf.putUint32(0, 100) // offset well past an empty memory
	buf.putUint32(4, 4)
	_, err := Lift(g, RefString(), buf.Buf, mem)
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindMemoryBounds {
		t.Fatalf("err = %v, wanted MemoryBounds", err)
	}
}

func TestLiftUnknownFlagBit(t *testing.T) {
	b := newGraphBuilder()
	perms := b.Declare("t#perms", TypeDecl{Kind: KindFlags, Flags: []Flag{
		{Name: "read", Index: 0}, {Name: "write", Index: 1},
	}})
	g := b.Build()
	_, err := Lift(g, perms, []byte{0x04}, NewLinearMemory()) // bit 2 undeclared
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != KindUnknownFlagBit {
		t.Fatalf("err = %v, wanted UnknownFlagBit", err)
	}
}

func TestLiftOptionNoneSome(t *testing.T) {
	b := newGraphBuilder()
	opt := b.Declare("t#opt", TypeDecl{Kind: KindOption, Cases: []Case{
		{Name: "none"}, {Name: "some", Payload: RefU32()},
	}})
	g := b.Build()
	mem := NewLinearMemory()

	main, err := Lower(g, opt, NoneValue(), mem)
	if err != nil {
		t.Fatal(err)
	}
	lifted, err := Lift(g, opt, main, mem)
	if err != nil || lifted.Kind != KindOption || lifted.CaseName != "none" {
		t.Fatalf("Lift(none) = (%+v, %v)", lifted, err)
	}

	main, err = Lower(g, opt, SomeValue(U32Value(9)), mem)
	if err != nil {
		t.Fatal(err)
	}
	lifted, err = Lift(g, opt, main, mem)
	if err != nil || lifted.CaseName != "some" || lifted.Payload == nil || lifted.Payload.U64 != 9 {
		t.Fatalf("Lift(some(9)) = (%+v, %v)", lifted, err)
	}
}
