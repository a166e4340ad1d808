package canonkv

// storeState is the single bookkeeping record marking whether a store
// directory has been through Store.Init, mirroring the original's
// STORE_VERSION / init-vs-open distinction (SPEC_FULL §3). It is msgpack
// bookkeeping, not a domain value, so it never goes through Lower/Lift.
type storeState struct {
	FormatVersion uint8 `msgpack:"v"`
	CreatedAt     int64 `msgpack:"c"`
}

const currentStoreFormatVersion uint8 = 1

// storeStateKey is the reserved bookkeeping key. It cannot collide with the
// T\x00/V\x00 key families (§6) since it starts with a third, otherwise
// unused prefix byte.
var storeStateKey = []byte("S\x00state")

func loadStoreState(e OrderedEngine) (*storeState, error) {
	raw, err := e.Get(storeStateKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	st := new(storeState)
	if err := decodeMsgpack(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}

func saveStoreState(e OrderedEngine, st *storeState) error {
	return e.Put(storeStateKey, encodeMsgpack(st))
}

// keyspaceRecord is KeyspaceMetadata's on-disk shape (§3), persisted under
// T\x00{keyspace} via msgpack — bookkeeping about a type, not a value of
// that type, so it is kept out of the canonical-ABI envelope format
// entirely (SPEC_FULL §2's dependency table).
type keyspaceRecord struct {
	Name          string          `msgpack:"n"`
	QualifiedName string          `msgpack:"q"`
	IdlDefinition string          `msgpack:"idl"`
	TypeName      string          `msgpack:"t"`
	TypeVersion   SemanticVersion `msgpack:"tv"`
	TypeHash      uint32          `msgpack:"h"`
	CreatedAt     int64           `msgpack:"c"`
}

func metaKey(keyspace string) []byte {
	return append([]byte("T\x00"), keyspace...)
}

func valueKey(keyspace, key string) []byte {
	b := append([]byte("V\x00"), keyspace...)
	b = append(b, 0)
	return append(b, key...)
}

func valuePrefix(keyspace string) []byte {
	b := append([]byte("V\x00"), keyspace...)
	return append(b, 0)
}
