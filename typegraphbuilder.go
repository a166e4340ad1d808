package canonkv

// graphBuilder constructs an in-memory TypeGraph by hand, for the
// compiled-in envelope meta-type (envelope.go) and for tests that want a
// TypeGraph without pulling in a real IDL parser — the collaborator is
// deliberately a small capability interface for exactly this reason (§9).
type graphBuilder struct {
	byName map[string]int32
	decls  []TypeDecl
	order  []string
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{byName: make(map[string]int32)}
}

// Declare registers decl under qualifiedName and returns the TypeRef other
// Declare calls can embed as a field/case/element type. decl can only embed
// refs already returned by Declare or Ref, so every type it references must
// be declared before it.
func (b *graphBuilder) Declare(qualifiedName string, decl TypeDecl) TypeRef {
	decl.QualifiedName = qualifiedName
	idx := int32(len(b.decls))
	b.decls = append(b.decls, decl)
	b.byName[qualifiedName] = idx
	b.order = append(b.order, qualifiedName)
	return declRef(idx)
}

// Ref resolves an already-declared qualified name to its TypeRef. It
// panics if the name hasn't been declared yet. There is no placeholder
// ref, so a type cannot reference itself.
func (b *graphBuilder) Ref(qualifiedName string) TypeRef {
	idx, ok := b.byName[qualifiedName]
	if !ok {
		panic("canonkv: undeclared type " + qualifiedName)
	}
	return declRef(idx)
}

func (b *graphBuilder) Build() TypeGraph {
	return &builtGraph{byName: b.byName, decls: b.decls, order: b.order}
}

type builtGraph struct {
	byName map[string]int32
	decls  []TypeDecl
	order  []string
}

var _ TypeGraph = (*builtGraph)(nil)

func (g *builtGraph) Lookup(qualifiedName string) (TypeRef, bool) {
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return TypeRef{}, false
	}
	return declRef(idx), true
}

func (g *builtGraph) ListTypes() []NamedType {
	out := make([]NamedType, len(g.order))
	for i, name := range g.order {
		out[i] = NamedType{Name: name, Ref: declRef(g.byName[name])}
	}
	return out
}

func (g *builtGraph) Resolve(ref TypeRef) TypeDecl {
	if ref.prim {
		panic("canonkv: Resolve called on a primitive TypeRef")
	}
	idx := ref.declIndex()
	if idx < 0 || int(idx) >= len(g.decls) {
		panic("canonkv: TypeRef from a different TypeGraph")
	}
	return g.decls[idx]
}

// Primitive TypeRef constructors, exported for collaborators (the text
// parser/printer, IDL adapters) building RuntimeValues and TypeDecls
// without reaching into package internals.
func RefBool() TypeRef   { return primRef(KindBool) }
func RefU8() TypeRef      { return primRef(KindU8) }
func RefU16() TypeRef     { return primRef(KindU16) }
func RefU32() TypeRef     { return primRef(KindU32) }
func RefU64() TypeRef     { return primRef(KindU64) }
func RefS8() TypeRef      { return primRef(KindS8) }
func RefS16() TypeRef     { return primRef(KindS16) }
func RefS32() TypeRef     { return primRef(KindS32) }
func RefS64() TypeRef     { return primRef(KindS64) }
func RefF32() TypeRef     { return primRef(KindF32) }
func RefF64() TypeRef     { return primRef(KindF64) }
func RefChar() TypeRef    { return primRef(KindChar) }
func RefString() TypeRef  { return primRef(KindString) }
