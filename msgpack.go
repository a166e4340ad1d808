package canonkv

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeMsgpack serialises v (a pointer to a bookkeeping struct) using
// pooled msgpack encoders, the way encoding.go's encodingMethod does for
// edb's table/index state records. Reserved for internal store bookkeeping
// (storeState, keyspaceRecord) — never for the domain value bytes, which
// always go through Lower/Lift against the registered type's layout.
func encodeMsgpack(v any) []byte {
	bb := &bytesBuilder{}
	enc := msgpack.GetEncoder()
	enc.Reset(bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("canonkv: failed to encode %T as msgpack: %w", v, err))
	}
	return bb.Buf
}

// decodeMsgpack deserialises into v (a pointer), returning a *StoreError
// wrapping the underlying failure on malformed input.
func decodeMsgpack(buf []byte, v any) error {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return storeErrf(KindUnknown, "", nil, err, "failed to decode msgpack into %T", v)
	}
	return nil
}
