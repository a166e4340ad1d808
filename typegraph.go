package canonkv

// TypeKind identifies which constructor a declared type uses. Anything not
// in this list (resources, streams, futures, handles) is rejected at
// registration time.
type TypeKind int

const (
	KindInvalidType TypeKind = iota

	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindS8
	KindS16
	KindS32
	KindS64
	KindF32
	KindF64
	KindChar
	KindString

	KindList
	KindRecord
	KindTuple
	KindVariant
	KindEnum
	KindOption
	KindResult
	KindFlags
	KindAlias
)

func (k TypeKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindS8:
		return "s8"
	case KindS16:
		return "s16"
	case KindS32:
		return "s32"
	case KindS64:
		return "s64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindVariant:
		return "variant"
	case KindEnum:
		return "enum"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindFlags:
		return "flags"
	case KindAlias:
		return "alias"
	default:
		return "invalid"
	}
}

func (k TypeKind) IsPrimitive() bool {
	return k >= KindBool && k <= KindString
}

// TypeRef is an opaque, immutable reference into a TypeGraph: either one of
// the fixed primitive tags, or an index into the graph's declared-type
// table. The zero value is not a valid TypeRef.
type TypeRef struct {
	kind TypeKind // only meaningful when prim is true
	prim bool
	idx  int32 // 1-based index into the owning TypeGraph's declared types, when !prim; 0 means "no ref"
}

func primRef(k TypeKind) TypeRef {
	return TypeRef{kind: k, prim: true}
}

// declRef wraps a 0-based declared-type index as a TypeRef, storing it
// 1-based internally so the zero TypeRef (idx 0) is reliably "invalid"
// even though the first declared type has 0-based index 0.
func declRef(idx int32) TypeRef {
	return TypeRef{prim: false, idx: idx + 1}
}

func (r TypeRef) declIndex() int32 {
	return r.idx - 1
}

// Field is one member of a record or tuple; Name is empty for tuple
// elements. Fields are ordered, and order is layout-significant.
type Field struct {
	Name string
	Type TypeRef
}

// Case is one arm of a variant, enum, option, or result. Payload is the
// zero TypeRef (IsValid() == false) when the case carries no payload.
type Case struct {
	Name    string
	Payload TypeRef
}

// Flag is one named bit of a flags type; Index is its bit position.
type Flag struct {
	Name  string
	Index int
}

// TypeDecl is the structural definition of one declared (non-primitive)
// type in a TypeGraph.
type TypeDecl struct {
	QualifiedName string
	Kind          TypeKind

	Elem TypeRef // list<T>, alias = T (option<T> uses Cases)

	Fields []Field // record, tuple
	Cases  []Case  // variant, enum, option, result
	Flags  []Flag  // flags
}

// TypeGraph is the external collaborator supplying a parsed IDL's type
// graph: lookup by qualified name and structural inspection of declared
// types. The core never constructs one itself except for the small
// compiled-in graph backing the envelope format (see envelope.go).
type TypeGraph interface {
	// Lookup resolves a qualified name to a TypeRef, or reports not found.
	Lookup(qualifiedName string) (TypeRef, bool)

	// ListTypes returns every top-level exported (name, TypeRef) pair.
	ListTypes() []NamedType

	// Resolve returns the structural declaration behind a non-primitive
	// TypeRef. It panics if called on a primitive TypeRef or one this
	// graph didn't produce — callers check IsPrimitive first.
	Resolve(ref TypeRef) TypeDecl
}

// NamedType pairs an exported name with the TypeRef it resolves to.
type NamedType struct {
	Name string
	Ref  TypeRef
}

// IsValid reports whether ref is anything other than the zero TypeRef.
func (r TypeRef) IsValid() bool {
	return r.prim || r.idx != 0
}

// IsPrimitive reports whether ref names one of the built-in scalar kinds
// directly, without needing a TypeGraph to resolve it.
func (r TypeRef) IsPrimitive() bool {
	return r.prim
}

// PrimitiveKind returns the primitive kind of ref. It panics if !IsPrimitive.
func (r TypeRef) PrimitiveKind() TypeKind {
	if !r.prim {
		panic("canonkv: PrimitiveKind called on a non-primitive TypeRef")
	}
	return r.kind
}

// KindOf returns ref's TypeKind, resolving through g if ref is not a
// primitive. Aliases are NOT unwrapped here; use ResolveAlias first if the
// caller needs the underlying kind.
func KindOf(g TypeGraph, ref TypeRef) TypeKind {
	if ref.prim {
		return ref.kind
	}
	return g.Resolve(ref).Kind
}

// ResolveAlias follows `type alias = T` chains until it reaches a
// non-alias TypeRef, per §4.2's "layout of the underlying type" rule.
func ResolveAlias(g TypeGraph, ref TypeRef) TypeRef {
	for !ref.prim {
		decl := g.Resolve(ref)
		if decl.Kind != KindAlias {
			return ref
		}
		ref = decl.Elem
	}
	return ref
}
