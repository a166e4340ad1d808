package canonkv

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestBoltEngineRoundtripThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canonkv.bolt")
	engine, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	parser := &fakeParser{graphs: map[string]TypeGraph{pointIDL: buildPointGraph()}}
	s, err := Init(engine, Options{Parser: parser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(3), U32Value(4)})
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

	keys, err := s.ListKeys("points", ListKeysOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || string(keys[0]) != "origin" {
		t.Fatalf("ListKeys = %v, wanted [origin]", keys)
	}
}

func TestBoltEngineReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canonkv.bolt")
	parser := &fakeParser{graphs: map[string]TypeGraph{pointIDL: buildPointGraph()}}

	engine, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Init(engine, Options{Parser: parser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RegisterType("points", pointIDL, "", SemanticVersion{1, 0, 0}, false); err != nil {
		t.Fatal(err)
	}
	v := RecordValue([]RuntimeValue{U32Value(1), U32Value(2)})
	if err := s.Set("points", "a", v); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	engine2, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer engine2.Close()
	s2, err := Open(engine2, Options{Parser: parser})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.Get("points", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("Get after reopen = %+v, wanted %+v", got, v)
	}
}
