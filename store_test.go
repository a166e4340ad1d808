package canonkv

import (
	"errors"
	"reflect"
	"testing"
)

// fakeParser is the IDLParser test double §9 calls for: a small map from
// idl text to a pre-built TypeGraph, so tests never need a real IDL grammar.
type fakeParser struct {
	graphs map[string]TypeGraph
}

func (p *fakeParser) Parse(idlText string) (TypeGraph, error) {
	g, ok := p.graphs[idlText]
	if !ok {
		return nil, errors.New("fakeParser: no graph registered for this idl text")
	}
	return g, nil
}

func buildPointGraph() TypeGraph {
	b := newGraphBuilder()
	b.Declare("test:ks#point", TypeDecl{
		Kind: KindRecord,
		Fields: []Field{
			{Name: "x", Type: RefU32()},
			{Name: "y", Type: RefU32()},
		},
	})
	return b.Build()
}

func newTestStore(t *testing.T, idl string, g TypeGraph) *Store {
	t.Helper()
	engine := newMemEngine()
	parser := &fakeParser{graphs: map[string]TypeGraph{idl: g}}
	s, err := Init(engine, Options{Parser: parser})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

const pointIDL = "record point { x: u32, y: u32 }"

func TestStoreInitOpenLifecycle(t *testing.T) {
	engine := newMemEngine()
	parser := &fakeParser{graphs: map[string]TypeGraph{pointIDL: buildPointGraph()}}

	if _, err := Open(engine, Options{Parser: parser}); err == nil {
		t.Fatal("Open on never-initialized engine should fail")
	}
	s, err := Init(engine, Options{Parser: parser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Init(engine, Options{Parser: parser}); err == nil {
		t.Fatal("second Init should fail AlreadyInitialized")
	}
	_ = s
	if _, err := Open(engine, Options{Parser: parser}); err != nil {
		t.Fatalf("Open after Init should succeed, got %v", err)
	}
}

func TestStoreRegisterAndGetType(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	meta, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false)
	if err != nil {
		t.Fatal(err)
	}
	if meta.QualifiedName != "test:ks#point" {
		t.Fatalf("QualifiedName = %q", meta.QualifiedName)
	}
	got, err := s.GetType("points")
	if err != nil {
		t.Fatal(err)
	}
	if got.QualifiedName != meta.QualifiedName || got.TypeVersion != meta.TypeVersion {
		t.Fatalf("GetType = %+v, wanted %+v", got, meta)
	}
	if ks, ok := s.KeyspaceForQualifiedName("test:ks#point"); !ok || ks != "points" {
		t.Fatalf("KeyspaceForQualifiedName = (%q, %v)", ks, ok)
	}
}

func TestStoreForceReregister(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err == nil {
		t.Fatal("second non-force registration should fail KeyspaceExists")
	}
	m2, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, true)
	if err != nil {
		t.Fatalf("force re-register should succeed, got %v", err)
	}
	got, err := s.GetType("points")
	if err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt != m2.CreatedAt {
		t.Fatalf("get_type should reflect the latest registration's metadata")
	}
}

func TestStoreSetGetRoundtrip(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(42), U32Value(100)})
	if err := s.Set("points", "origin", v); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("points", "origin")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("Get = %+v, wanted %+v", got, v)
	}
}

func TestStoreGetUnknownKeyspaceAndKey(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.Get("nope", "x"); err == nil {
		t.Fatal("Get on unregistered keyspace should fail")
	}
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("points", "missing"); err == nil {
		t.Fatal("Get of absent key should fail KeyNotFound")
	}
}

func TestStoreSetKeyInvalid(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(1), U32Value(2)})
	if err := s.Set("points", "", v); err == nil {
		t.Fatal("Set with empty key should fail KeyInvalid")
	}
	if err := s.Set("points", "a\x00b", v); err == nil {
		t.Fatal("Set with NUL in key should fail KeyInvalid")
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(1), U32Value(2)})
	if err := s.Set("points", "a", v); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("points", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("points", "a"); err != nil {
		t.Fatalf("delete of absent key should be idempotent, got %v", err)
	}
}

func TestStoreListKeysOrderingAndPrefix(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(0), U32Value(0)})
	for _, k := range []string{"a", "aa", "b"} {
		if err := s.Set("points", k, v); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := s.ListKeys("points", ListKeysOptions{Prefix: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, k := range keys {
		got = append(got, string(k))
	}
	want := []string{"a", "aa"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListKeys(prefix=a) = %v, wanted %v", got, want)
	}
}

func TestStoreVersionGate(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 2, 0}, false); err != nil {
		t.Fatal(err)
	}

	writeAt := func(key string, v SemanticVersion) {
		t.Helper()
		mem := NewLinearMemory()
		main, err := Lower(buildPointGraph(), mustRef(t, buildPointGraph(), "test:ks#point"), RecordValue([]RuntimeValue{U32Value(1), U32Value(2)}), mem)
		if err != nil {
			t.Fatal(err)
		}
		env := StoredEnvelope{FormatVersion: 1, TypeVersion: v, Value: main}
		enc, err := EncodeEnvelope(env)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.engine.Put(valueKey("points", key), enc); err != nil {
			t.Fatal(err)
		}
	}

	writeAt("old", SemanticVersion{1, 1, 5})
	writeAt("future", SemanticVersion{2, 0, 0})

	if _, err := s.Get("points", "old"); err != nil {
		t.Fatalf("stored 1.1.5 under current 1.2.0 should be readable, got %v", err)
	}
	if _, err := s.Get("points", "future"); err == nil {
		t.Fatal("stored 2.0.0 under current 1.2.0 should fail IncompatibleVersion")
	}
}

func mustRef(t *testing.T, g TypeGraph, name string) TypeRef {
	t.Helper()
	ref, ok := g.Lookup(name)
	if !ok {
		t.Fatalf("type %s not found", name)
	}
	return ref
}

func TestStoreDeleteTypeWithData(t *testing.T) {
	s := newTestStore(t, pointIDL, buildPointGraph())
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(1), U32Value(2)})
	if err := s.Set("points", "a", v); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteType("points", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetType("points"); err == nil {
		t.Fatal("GetType after delete_type should fail KeyspaceNotFound")
	}
	raw, err := s.engine.Get(valueKey("points", "a"))
	if err != nil {
		t.Fatal(err)
	}
	if raw != nil {
		t.Fatal("delete_type(delete_data=true) should have removed the value")
	}
}
