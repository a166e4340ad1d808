package canonkv

// RuntimeValue is the in-memory structured representation Lower consumes
// and Lift produces — a tagged union mirroring TypeKind. Values are owned
// outright; nothing here is a shared reference into anyone else's memory.
type RuntimeValue struct {
	Kind TypeKind

	Bool bool
	U64  uint64 // u8/u16/u32/u64 all stored widened, width enforced by the TypeRef
	S64  int64  // s8/s16/s32/s64
	F32  float32
	F64  float64
	Char rune
	Str  string

	// list, tuple, and record-as-ordered-fields all use Items; for a
	// record, Items[i] corresponds to the i-th declared field in order.
	Items []RuntimeValue

	// variant, enum, option, result: the chosen case and, if the case
	// declares a payload, its value.
	CaseIndex int
	CaseName  string
	Payload   *RuntimeValue

	// flags: the set of flag names that are on, order-insensitive.
	Flags []string
}

func BoolValue(v bool) RuntimeValue       { return RuntimeValue{Kind: KindBool, Bool: v} }
func U8Value(v uint8) RuntimeValue        { return RuntimeValue{Kind: KindU8, U64: uint64(v)} }
func U16Value(v uint16) RuntimeValue      { return RuntimeValue{Kind: KindU16, U64: uint64(v)} }
func U32Value(v uint32) RuntimeValue      { return RuntimeValue{Kind: KindU32, U64: uint64(v)} }
func U64Value(v uint64) RuntimeValue      { return RuntimeValue{Kind: KindU64, U64: v} }
func S8Value(v int8) RuntimeValue         { return RuntimeValue{Kind: KindS8, S64: int64(v)} }
func S16Value(v int16) RuntimeValue       { return RuntimeValue{Kind: KindS16, S64: int64(v)} }
func S32Value(v int32) RuntimeValue       { return RuntimeValue{Kind: KindS32, S64: int64(v)} }
func S64Value(v int64) RuntimeValue       { return RuntimeValue{Kind: KindS64, S64: v} }
func F32Value(v float32) RuntimeValue     { return RuntimeValue{Kind: KindF32, F32: v} }
func F64Value(v float64) RuntimeValue     { return RuntimeValue{Kind: KindF64, F64: v} }
func CharValue(v rune) RuntimeValue       { return RuntimeValue{Kind: KindChar, Char: v} }
func StringValue(v string) RuntimeValue   { return RuntimeValue{Kind: KindString, Str: v} }
func ListValue(items []RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindList, Items: items}
}
func TupleValue(items []RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindTuple, Items: items}
}
func RecordValue(fields []RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindRecord, Items: fields}
}

func VariantValue(index int, name string, payload *RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindVariant, CaseIndex: index, CaseName: name, Payload: payload}
}

func EnumValue(index int, name string) RuntimeValue {
	return RuntimeValue{Kind: KindEnum, CaseIndex: index, CaseName: name}
}

func NoneValue() RuntimeValue {
	return RuntimeValue{Kind: KindOption, CaseIndex: 0, CaseName: "none"}
}

func SomeValue(v RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindOption, CaseIndex: 1, CaseName: "some", Payload: &v}
}

func OkValue(v *RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindResult, CaseIndex: 0, CaseName: "ok", Payload: v}
}

func ErrValue(v *RuntimeValue) RuntimeValue {
	return RuntimeValue{Kind: KindResult, CaseIndex: 1, CaseName: "err", Payload: v}
}

func FlagsValue(names []string) RuntimeValue {
	return RuntimeValue{Kind: KindFlags, Flags: names}
}
