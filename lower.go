package canonkv

import (
	"math"
	"unicode/utf8"
)

// Lower converts v (inhabiting the type ref resolves to) into its flat
// binary layout, writing variable-length children into mem as it goes.
// The returned buffer is exactly layout(ref).size bytes for fixed-size
// types; a caller that wants the full EncodedValue also keeps mem.
func Lower(g TypeGraph, ref TypeRef, v RuntimeValue, mem *LinearMemory) ([]byte, error) {
	l := ComputeLayout(g, ref)
	buf := fixedBuf{Buf: make([]byte, l.Size)}
	if err := lowerInto(g, ref, v, buf, 0, mem, ""); err != nil {
		return nil, err
	}
	return buf.Buf, nil
}

// lowerInto writes v at buf[offset:] per ref's layout, recursing for
// structured types and spilling variable-length data into mem. path is
// the breadcrumb accumulated so far, for error reporting.
func lowerInto(g TypeGraph, ref TypeRef, v RuntimeValue, buf byteTarget, offset int, mem *LinearMemory, path string) error {
	ref = ResolveAlias(g, ref)
	if ref.IsPrimitive() {
		return lowerPrimitive(ref.PrimitiveKind(), v, buf, offset, mem, path)
	}
	decl := g.Resolve(ref)
	switch decl.Kind {
	case KindList:
		return lowerList(g, decl.Elem, v.Items, buf, offset, mem, path)
	case KindRecord, KindTuple:
		return lowerRecord(g, decl, v, buf, offset, mem, path)
	case KindVariant:
		return lowerVariant(g, decl.Cases, v, buf, offset, mem, path, false)
	case KindEnum:
		return lowerVariant(g, decl.Cases, v, buf, offset, mem, path, false)
	case KindOption:
		return lowerVariant(g, decl.Cases, v, buf, offset, mem, path, false)
	case KindResult:
		return lowerVariant(g, decl.Cases, v, buf, offset, mem, path, false)
	case KindFlags:
		return lowerFlags(decl.Flags, v, buf, offset, path)
	default:
		return codecErrf(KindTypeMismatch, path, decl.Kind.String(), "unsupported kind for Lower")
	}
}

func lowerPrimitive(k TypeKind, v RuntimeValue, buf byteTarget, offset int, mem *LinearMemory, path string) error {
	if v.Kind != k {
		return codecErrf(KindTypeMismatch, path, k.String(), "value has kind %s", v.Kind.String())
	}
	switch k {
	case KindBool:
		if v.Bool {
			buf.putUint8(offset, 1)
		} else {
			buf.putUint8(offset, 0)
		}
	case KindU8:
		if v.U64 > math.MaxUint8 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in u8", v.U64)
		}
		buf.putUint8(offset, uint8(v.U64))
	case KindU16:
		if v.U64 > math.MaxUint16 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in u16", v.U64)
		}
		buf.putUint16(offset, uint16(v.U64))
	case KindU32:
		if v.U64 > math.MaxUint32 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in u32", v.U64)
		}
		buf.putUint32(offset, uint32(v.U64))
	case KindU64:
		buf.putUint64(offset, v.U64)
	case KindS8:
		if v.S64 < math.MinInt8 || v.S64 > math.MaxInt8 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in s8", v.S64)
		}
		buf.putUint8(offset, uint8(int8(v.S64)))
	case KindS16:
		if v.S64 < math.MinInt16 || v.S64 > math.MaxInt16 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in s16", v.S64)
		}
		buf.putUint16(offset, uint16(int16(v.S64)))
	case KindS32:
		if v.S64 < math.MinInt32 || v.S64 > math.MaxInt32 {
			return codecErrf(KindOutOfRange, path, k.String(), "%d does not fit in s32", v.S64)
		}
		buf.putUint32(offset, uint32(int32(v.S64)))
	case KindS64:
		buf.putUint64(offset, uint64(v.S64))
	case KindF32:
		buf.putUint32(offset, math.Float32bits(v.F32))
	case KindF64:
		buf.putUint64(offset, math.Float64bits(v.F64))
	case KindChar:
		if v.Char < 0 || v.Char > utf8.MaxRune || !utf8.ValidRune(v.Char) {
			return codecErrf(KindOutOfRange, path, k.String(), "%d is not a valid Unicode scalar value", v.Char)
		}
		buf.putUint32(offset, uint32(v.Char))
	case KindString:
		return lowerString(v.Str, buf, offset, mem)
	default:
		return codecErrf(KindTypeMismatch, path, k.String(), "not a primitive kind")
	}
	return nil
}

func lowerString(s string, buf byteTarget, offset int, mem *LinearMemory) error {
	data := []byte(s)
	ptr := mem.Allocate(len(data), 1)
	mem.Write(ptr, data)
	buf.putUint32(offset, ptr)
	buf.putUint32(offset+4, uint32(len(data)))
	return nil
}

func lowerList(g TypeGraph, elem TypeRef, items []RuntimeValue, buf byteTarget, offset int, mem *LinearMemory, path string) error {
	elemLayout := ComputeLayout(g, elem)
	ptr := mem.Allocate(len(items)*elemLayout.Size, elemLayout.Align)
	// Write through mem itself, not a []byte snapshot: a nested element
	// (e.g. a string field) may call mem.Allocate again and reallocate
	// mem's backing array, which would strand writes made through a
	// snapshot taken before that happened.
	for i, item := range items {
		itemOff := int(ptr) + i*elemLayout.Size
		if err := lowerInto(g, elem, item, mem, itemOff, mem, indexPath(path, i)); err != nil {
			return err
		}
	}
	buf.putUint32(offset, ptr)
	buf.putUint32(offset+4, uint32(len(items)))
	return nil
}

func lowerRecord(g TypeGraph, decl TypeDecl, v RuntimeValue, buf byteTarget, offset int, mem *LinearMemory, path string) error {
	if v.Kind != decl.Kind || len(v.Items) != len(decl.Fields) {
		return codecErrf(KindTypeMismatch, path, decl.Kind.String(), "expected %d fields, got %d", len(decl.Fields), len(v.Items))
	}
	fieldLayouts, _ := recordFieldLayouts(g, decl.Fields)
	for i, f := range decl.Fields {
		fl := fieldLayouts[i]
		childPath := fieldPath(path, f.Name, i)
		if err := lowerInto(g, f.Type, v.Items[i], buf, offset+fl.Offset, mem, childPath); err != nil {
			return err
		}
	}
	return nil
}

func lowerVariant(g TypeGraph, cases []Case, v RuntimeValue, buf byteTarget, offset int, mem *LinearMemory, path string, _ bool) error {
	idx, payload, err := resolveCase(cases, v, path)
	if err != nil {
		return err
	}
	info := computeVariantLayout(g, cases)
	writeDiscriminant(buf, offset, info.DiscWidth, idx)
	c := cases[idx]
	if c.Payload.IsValid() {
		if payload == nil {
			return codecErrf(KindTypeMismatch, path, "", "case %q requires a payload", c.Name)
		}
		childPath := path + "." + c.Name
		if err := lowerInto(g, c.Payload, *payload, buf, offset+info.PayloadOff, mem, childPath); err != nil {
			return err
		}
	}
	return nil
}

// resolveCase finds v's case among cases: by CaseName when it is set
// (CaseIndex is then ignored), else by CaseIndex. Returns UnknownCase if
// the name isn't declared or the index is out of range.
func resolveCase(cases []Case, v RuntimeValue, path string) (int, *RuntimeValue, error) {
	if v.CaseName != "" {
		for i, c := range cases {
			if c.Name == v.CaseName {
				return i, v.Payload, nil
			}
		}
		return 0, nil, codecErrf(KindUnknownCase, path, "", "case %q not declared", v.CaseName)
	}
	if v.CaseIndex < 0 || v.CaseIndex >= len(cases) {
		return 0, nil, codecErrf(KindUnknownCase, path, "", "case index %d out of range (%d cases)", v.CaseIndex, len(cases))
	}
	return v.CaseIndex, v.Payload, nil
}

func writeDiscriminant(buf byteTarget, offset, width, idx int) {
	switch width {
	case 1:
		buf.putUint8(offset, uint8(idx))
	case 2:
		buf.putUint16(offset, uint16(idx))
	default:
		buf.putUint32(offset, uint32(idx))
	}
}

func lowerFlags(flags []Flag, v RuntimeValue, buf byteTarget, offset int, path string) error {
	if v.Kind != KindFlags {
		return codecErrf(KindTypeMismatch, path, "flags", "value has kind %s", v.Kind.String())
	}
	byName := make(map[string]int, len(flags))
	for _, f := range flags {
		byName[f.Name] = f.Index
	}
	var bits uint32
	for _, name := range v.Flags {
		idx, ok := byName[name]
		if !ok {
			return codecErrf(KindUnknownFlagBit, path, "flags", "flag %q not declared", name)
		}
		bits |= 1 << uint(idx)
	}
	width := ceilPow2Width((len(flags) + 7) / 8)
	writeDiscriminant(buf, offset, width, int(bits))
	return nil
}

func fieldPath(path, name string, idx int) string {
	if name != "" {
		if path == "" {
			return name
		}
		return path + "." + name
	}
	return indexPath(path, idx)
}

func indexPath(path string, idx int) string {
	if path == "" {
		return "[" + itoa(idx) + "]"
	}
	return path + "[" + itoa(idx) + "]"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
