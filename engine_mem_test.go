package canonkv

import (
	"reflect"
	"testing"
)

func TestMemEngineGetPutDelete(t *testing.T) {
	e := newMemEngine()
	defer e.Close()

	if v, err := e.Get([]byte("a")); err != nil || v != nil {
		t.Fatalf("Get on empty engine = (%v, %v), wanted (nil, nil)", v, err)
	}
	if err := e.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if v, err := e.Get([]byte("a")); err != nil || string(v) != "1" {
		t.Fatalf("Get = (%v, %v), wanted (1, nil)", v, err)
	}
	if err := e.Put([]byte("a"), []byte("2")); err != nil {
		t.Fatal(err)
	}
	if v, err := e.Get([]byte("a")); err != nil || string(v) != "2" {
		t.Fatalf("Get after overwrite = (%v, %v), wanted (2, nil)", v, err)
	}
	if err := e.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if v, err := e.Get([]byte("a")); err != nil || v != nil {
		t.Fatalf("Get after delete = (%v, %v), wanted (nil, nil)", v, err)
	}
	if err := e.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete of absent key should be a no-op, got %v", err)
	}
}

func TestMemEngineRangeOrderingAndPrefix(t *testing.T) {
	e := newMemEngine()
	defer e.Close()
	for _, k := range []string{"b", "aa", "a", "ab"} {
		if err := e.Put([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := e.Range([]byte("a"), prefixUpperBound([]byte("a")), 0)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, kv := range got {
		keys = append(keys, string(kv.Key))
	}
	want := []string{"a", "aa", "ab"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("Range(prefix a) = %v, wanted %v", keys, want)
	}
}

func TestMemEngineRangeLimit(t *testing.T) {
	e := newMemEngine()
	defer e.Close()
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := e.Put([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := e.Range([]byte("a"), nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || string(got[0].Key) != "a" || string(got[1].Key) != "b" {
		t.Fatalf("Range with limit 2 = %v", got)
	}
}
