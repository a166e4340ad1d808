package canonkv

// Layout is the (size, align) pair the canonical ABI computes for a type.
type Layout struct {
	Size  int
	Align int
}

// FieldLayout is a field's Layout plus the offset it lands at within its
// enclosing record/tuple/variant-payload block.
type FieldLayout struct {
	Layout
	Offset int
}

// ComputeLayout returns (size, align) for ref per the canonical rules of
// §4.2, resolving through g for non-primitive and aliased types.
func ComputeLayout(g TypeGraph, ref TypeRef) Layout {
	ref = ResolveAlias(g, ref)
	if ref.IsPrimitive() {
		return primitiveLayout(ref.PrimitiveKind())
	}
	decl := g.Resolve(ref)
	switch decl.Kind {
	case KindList:
		return Layout{Size: 8, Align: 4}
	case KindRecord, KindTuple:
		return recordLayout(g, decl.Fields)
	case KindVariant:
		return variantLayout(g, decl.Cases)
	case KindEnum:
		return variantLayout(g, decl.Cases)
	case KindOption:
		return variantLayout(g, decl.Cases)
	case KindResult:
		return variantLayout(g, decl.Cases)
	case KindFlags:
		return flagsLayout(len(decl.Flags))
	default:
		panic("canonkv: ComputeLayout: unsupported kind " + decl.Kind.String())
	}
}

func primitiveLayout(k TypeKind) Layout {
	switch k {
	case KindBool:
		return Layout{Size: 1, Align: 1}
	case KindU8, KindS8:
		return Layout{Size: 1, Align: 1}
	case KindU16, KindS16:
		return Layout{Size: 2, Align: 2}
	case KindU32, KindS32, KindF32:
		return Layout{Size: 4, Align: 4}
	case KindU64, KindS64, KindF64:
		return Layout{Size: 8, Align: 8}
	case KindChar:
		return Layout{Size: 4, Align: 4}
	case KindString, KindList:
		// pointer + length, each u32.
		return Layout{Size: 8, Align: 4}
	default:
		panic("canonkv: primitiveLayout: unexpected kind " + k.String())
	}
}

// recordFieldLayouts walks fields in declared order, aligning each to its
// own alignment and accumulating the record's own alignment as the max of
// field alignments (min 1). Shared by recordLayout (which only needs the
// totals) and Lower/Lift (which need each field's offset).
func recordFieldLayouts(g TypeGraph, fields []Field) ([]FieldLayout, Layout) {
	out := make([]FieldLayout, len(fields))
	offset := 0
	align := 1
	for i, f := range fields {
		l := ComputeLayout(g, f.Type)
		offset = alignUp(offset, l.Align)
		out[i] = FieldLayout{Layout: l, Offset: offset}
		offset += l.Size
		if l.Align > align {
			align = l.Align
		}
	}
	size := alignUp(offset, align)
	return out, Layout{Size: size, Align: align}
}

func recordLayout(g TypeGraph, fields []Field) Layout {
	_, l := recordFieldLayouts(g, fields)
	return l
}

// variantLayoutInfo is the full computed shape of a variant-family type
// (variant, enum, option, result), including the discriminant width and
// payload block alignment Lower/Lift need to place fields.
type variantLayoutInfo struct {
	DiscWidth    int // 1, 2, or 4 bytes
	PayloadAlign int // 1 if no case has a payload
	PayloadSize  int
	PayloadOff   int // aligned offset of the payload block, right after the discriminant
	Layout       Layout
}

func computeVariantLayout(g TypeGraph, cases []Case) variantLayoutInfo {
	discWidth := discWidthForCaseCount(len(cases))
	payloadAlign := 1
	payloadSize := 0
	for _, c := range cases {
		if !c.Payload.IsValid() {
			continue
		}
		l := ComputeLayout(g, c.Payload)
		if l.Align > payloadAlign {
			payloadAlign = l.Align
		}
		if l.Size > payloadSize {
			payloadSize = l.Size
		}
	}
	payloadOff := alignUp(discWidth, payloadAlign)
	align := discWidth
	if payloadAlign > align {
		align = payloadAlign
	}
	size := alignUp(payloadOff+payloadSize, align)
	return variantLayoutInfo{
		DiscWidth:    discWidth,
		PayloadAlign: payloadAlign,
		PayloadSize:  payloadSize,
		PayloadOff:   payloadOff,
		Layout:       Layout{Size: size, Align: align},
	}
}

func variantLayout(g TypeGraph, cases []Case) Layout {
	return computeVariantLayout(g, cases).Layout
}

func flagsLayout(flagCount int) Layout {
	bytesNeeded := (flagCount + 7) / 8
	if bytesNeeded == 0 {
		bytesNeeded = 1
	}
	size := ceilPow2Width(bytesNeeded)
	return Layout{Size: size, Align: size}
}
