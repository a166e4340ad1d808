package canonkv

// StoredEnvelope is the persisted self-describing wrapper around every
// value the store writes (§3, §4.5). format_version is currently always 1;
// Memory is nil when the encoded value spilled nothing into LinearMemory.
type StoredEnvelope struct {
	FormatVersion uint8
	TypeVersion   SemanticVersion
	Value         []byte
	Memory        []byte // nil means "no memory", not "empty memory"
}

const currentEnvelopeFormatVersion uint8 = 1

// envelopeGraph and envelopeType are the fixed, compiled-in TypeGraph and
// TypeRef the envelope itself is encoded against (§4.5: "The codec uses
// the core Lower/Lift with a fixed, compiled-in TypeGraph for this
// record"). Built once at package init, since it never changes shape.
var (
	envelopeGraph    TypeGraph
	envelopeType     TypeRef
	envelopeMainSize int
)

func init() {
	b := newGraphBuilder()
	semverType := b.Declare("canonkv:envelope/meta#semver", TypeDecl{
		Kind: KindRecord,
		Fields: []Field{
			{Name: "major", Type: RefU32()},
			{Name: "minor", Type: RefU32()},
			{Name: "patch", Type: RefU32()},
		},
	})
	byteListType := b.Declare("canonkv:envelope/meta#bytes", TypeDecl{
		Kind: KindList,
		Elem: RefU8(),
	})
	memoryOptType := b.Declare("canonkv:envelope/meta#memory", TypeDecl{
		Kind: KindOption,
		Cases: []Case{
			{Name: "none"},
			{Name: "some", Payload: byteListType},
		},
	})
	envelopeType = b.Declare("canonkv:envelope/meta#envelope", TypeDecl{
		Kind: KindRecord,
		Fields: []Field{
			{Name: "format_version", Type: RefU8()},
			{Name: "type_version", Type: semverType},
			{Name: "value", Type: byteListType},
			{Name: "memory", Type: memoryOptType},
		},
	})
	envelopeGraph = b.Build()
	envelopeMainSize = ComputeLayout(envelopeGraph, envelopeType).Size
}

// byteListToRuntimeValue and runtimeValueToByteList convert between a raw
// []byte and the list<u8> RuntimeValue shape Lower/Lift expect for the
// envelope's `value`/`memory` fields — deliberately not reusing `string`,
// since these are opaque bytes, not UTF-8 text.
func byteListToRuntimeValue(data []byte) RuntimeValue {
	items := make([]RuntimeValue, len(data))
	for i, b := range data {
		items[i] = U8Value(b)
	}
	return ListValue(items)
}

func runtimeValueToByteList(v RuntimeValue) []byte {
	out := make([]byte, len(v.Items))
	for i, item := range v.Items {
		out[i] = byte(item.U64)
	}
	return out
}

func semverToRuntimeValue(v SemanticVersion) RuntimeValue {
	return RecordValue([]RuntimeValue{U32Value(v.Major), U32Value(v.Minor), U32Value(v.Patch)})
}

func runtimeValueToSemver(v RuntimeValue) SemanticVersion {
	return SemanticVersion{
		Major: uint32(v.Items[0].U64),
		Minor: uint32(v.Items[1].U64),
		Patch: uint32(v.Items[2].U64),
	}
}

func envelopeToRuntimeValue(e StoredEnvelope) RuntimeValue {
	memField := NoneValue()
	if e.Memory != nil {
		memField = SomeValue(byteListToRuntimeValue(e.Memory))
	}
	return RecordValue([]RuntimeValue{
		U8Value(e.FormatVersion),
		semverToRuntimeValue(e.TypeVersion),
		byteListToRuntimeValue(e.Value),
		memField,
	})
}

func runtimeValueToEnvelope(v RuntimeValue) StoredEnvelope {
	e := StoredEnvelope{
		FormatVersion: uint8(v.Items[0].U64),
		TypeVersion:   runtimeValueToSemver(v.Items[1]),
		Value:         runtimeValueToByteList(v.Items[2]),
	}
	memField := v.Items[3]
	if memField.CaseName == "some" {
		e.Memory = runtimeValueToByteList(*memField.Payload)
	}
	return e
}

// EncodeEnvelope serialises e using the core codec against the compiled-in
// envelope meta-type, returning a flat byte record with no outer framing
// (the caller — TypedStore — already knows where the record ends; §6).
func EncodeEnvelope(e StoredEnvelope) ([]byte, error) {
	mem := NewLinearMemory()
	main, err := Lower(envelopeGraph, envelopeType, envelopeToRuntimeValue(e), mem)
	if err != nil {
		return nil, err
	}
	out := appendRaw(nil, main)
	out = appendRaw(out, mem.Bytes())
	// The main block is fixed-size (envelopeMainSize, computed once at init
	// from envelopeType's layout), so DecodeEnvelope splits main from memory
	// at that offset; no length is written into the record.
	return out, nil
}

// DecodeEnvelope is the inverse of EncodeEnvelope. It fails with
// UnsupportedEnvelopeVersion if the decoded format_version is newer than
// currentEnvelopeFormatVersion.
func DecodeEnvelope(data []byte) (StoredEnvelope, error) {
	if len(data) < envelopeMainSize {
		return StoredEnvelope{}, codecErrf(KindMemoryBounds, "", "envelope", "record too short: %d bytes, wanted at least %d", len(data), envelopeMainSize)
	}
	main := data[:envelopeMainSize]
	memBytes := data[envelopeMainSize:]
	mem := LinearMemoryFrom(memBytes)

	v, err := Lift(envelopeGraph, envelopeType, main, mem)
	if err != nil {
		return StoredEnvelope{}, err
	}
	e := runtimeValueToEnvelope(v)
	if e.FormatVersion > currentEnvelopeFormatVersion {
		return StoredEnvelope{}, codecErrf(KindUnsupportedEnvelopeVersion, "", "envelope", "format_version %d newer than known %d", e.FormatVersion, currentEnvelopeFormatVersion)
	}
	return e, nil
}
