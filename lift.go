package canonkv

import (
	"math"
	"unicode/utf8"
)

// Lift is the inverse of Lower: given the main buffer, the ref it was
// encoded against, and the LinearMemory variable-length data was spilled
// into, it reconstructs the original RuntimeValue.
func Lift(g TypeGraph, ref TypeRef, main []byte, mem *LinearMemory) (RuntimeValue, error) {
	buf := fixedBuf{Buf: main}
	return liftFrom(g, ref, buf, 0, mem, "")
}

func liftFrom(g TypeGraph, ref TypeRef, buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	ref = ResolveAlias(g, ref)
	if ref.IsPrimitive() {
		return liftPrimitive(ref.PrimitiveKind(), buf, offset, mem, path)
	}
	decl := g.Resolve(ref)
	switch decl.Kind {
	case KindList:
		return liftList(g, decl.Elem, buf, offset, mem, path)
	case KindRecord, KindTuple:
		return liftRecord(g, decl, buf, offset, mem, path)
	case KindVariant, KindEnum, KindOption, KindResult:
		return liftVariant(g, decl.Kind, decl.Cases, buf, offset, mem, path)
	case KindFlags:
		return liftFlags(decl.Flags, buf, offset, path)
	default:
		return RuntimeValue{}, codecErrf(KindTypeMismatch, path, decl.Kind.String(), "unsupported kind for Lift")
	}
}

func liftPrimitive(k TypeKind, buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	switch k {
	case KindBool:
		b := buf.getUint8(offset)
		if b != 0 && b != 1 {
			return RuntimeValue{}, codecErrf(KindInvalidBool, path, k.String(), "byte %d is not 0 or 1", b)
		}
		return BoolValue(b == 1), nil
	case KindU8:
		return U8Value(buf.getUint8(offset)), nil
	case KindU16:
		return U16Value(buf.getUint16(offset)), nil
	case KindU32:
		return U32Value(buf.getUint32(offset)), nil
	case KindU64:
		return U64Value(buf.getUint64(offset)), nil
	case KindS8:
		return S8Value(int8(buf.getUint8(offset))), nil
	case KindS16:
		return S16Value(int16(buf.getUint16(offset))), nil
	case KindS32:
		return S32Value(int32(buf.getUint32(offset))), nil
	case KindS64:
		return S64Value(int64(buf.getUint64(offset))), nil
	case KindF32:
		return F32Value(math.Float32frombits(buf.getUint32(offset))), nil
	case KindF64:
		return F64Value(math.Float64frombits(buf.getUint64(offset))), nil
	case KindChar:
		v := buf.getUint32(offset)
		r := rune(v)
		if v > utf8.MaxRune || !utf8.ValidRune(r) {
			return RuntimeValue{}, codecErrf(KindInvalidChar, path, k.String(), "%d is not a valid Unicode scalar value", v)
		}
		return CharValue(r), nil
	case KindString:
		return liftString(buf, offset, mem, path)
	default:
		return RuntimeValue{}, codecErrf(KindTypeMismatch, path, k.String(), "not a primitive kind")
	}
}

func liftString(buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	ptr := buf.getUint32(offset)
	length := buf.getUint32(offset + 4)
	data, err := mem.Read(ptr, length)
	if err != nil {
		return RuntimeValue{}, err
	}
	if !utf8.Valid(data) {
		return RuntimeValue{}, codecErrf(KindInvalidUtf8, path, "string", "invalid utf-8 at memory offset %d", ptr)
	}
	return StringValue(string(data)), nil
}

func liftList(g TypeGraph, elem TypeRef, buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	ptr := buf.getUint32(offset)
	n := buf.getUint32(offset + 4)
	elemLayout := ComputeLayout(g, elem)
	total := uint64(n) * uint64(elemLayout.Size)
	if total > uint64(^uint32(0)) {
		return RuntimeValue{}, codecErrf(KindMemoryBounds, path, "list", "element count %d overflows", n)
	}
	if _, err := mem.Read(ptr, uint32(total)); err != nil {
		return RuntimeValue{}, err
	}
	items := make([]RuntimeValue, n)
	for i := uint32(0); i < n; i++ {
		itemOff := int(ptr) + int(i)*elemLayout.Size
		v, err := liftFrom(g, elem, mem, itemOff, mem, indexPath(path, int(i)))
		if err != nil {
			return RuntimeValue{}, err
		}
		items[i] = v
	}
	return ListValue(items), nil
}

func liftRecord(g TypeGraph, decl TypeDecl, buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	fieldLayouts, _ := recordFieldLayouts(g, decl.Fields)
	items := make([]RuntimeValue, len(decl.Fields))
	for i, f := range decl.Fields {
		fl := fieldLayouts[i]
		childPath := fieldPath(path, f.Name, i)
		v, err := liftFrom(g, f.Type, buf, offset+fl.Offset, mem, childPath)
		if err != nil {
			return RuntimeValue{}, err
		}
		items[i] = v
	}
	return RuntimeValue{Kind: decl.Kind, Items: items}, nil
}

func liftVariant(g TypeGraph, familyKind TypeKind, cases []Case, buf byteTarget, offset int, mem *LinearMemory, path string) (RuntimeValue, error) {
	info := computeVariantLayout(g, cases)
	idx := readDiscriminant(buf, offset, info.DiscWidth)
	if idx < 0 || idx >= len(cases) {
		return RuntimeValue{}, codecErrf(KindUnknownDiscriminant, path, "", "discriminant %d out of range (%d cases)", idx, len(cases))
	}
	c := cases[idx]
	v := RuntimeValue{Kind: familyKind, CaseIndex: idx, CaseName: c.Name}
	if c.Payload.IsValid() {
		payload, err := liftFrom(g, c.Payload, buf, offset+info.PayloadOff, mem, path+"."+c.Name)
		if err != nil {
			return RuntimeValue{}, err
		}
		v.Payload = &payload
	}
	return v, nil
}

func readDiscriminant(buf byteTarget, offset, width int) int {
	switch width {
	case 1:
		return int(buf.getUint8(offset))
	case 2:
		return int(buf.getUint16(offset))
	default:
		return int(buf.getUint32(offset))
	}
}

func liftFlags(flags []Flag, buf byteTarget, offset int, path string) (RuntimeValue, error) {
	width := ceilPow2Width((len(flags) + 7) / 8)
	bits := uint32(readDiscriminant(buf, offset, width))
	var declaredMask uint32
	for _, f := range flags {
		declaredMask |= 1 << uint(f.Index)
	}
	if bits&^declaredMask != 0 {
		return RuntimeValue{}, codecErrf(KindUnknownFlagBit, path, "flags", "bits %#x outside declared flags", bits&^declaredMask)
	}
	var names []string
	for _, f := range flags {
		if bits&(1<<uint(f.Index)) != 0 {
			names = append(names, f.Name)
		}
	}
	return FlagsValue(names), nil
}
