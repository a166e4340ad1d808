package canonkv

import (
	"bytes"
	"hash/crc32"
	"sync"
	"time"
)

// IDLParser is the external IDL-parsing collaborator (§6, §9): given IDL
// source text, it returns a TypeGraph. The core never parses IDL itself.
type IDLParser interface {
	Parse(idlText string) (TypeGraph, error)
}

// BinaryExport hands a raw encoded value and its linear memory to a
// ModuleRunner without first decoding it into a RuntimeValue
// (SPEC_FULL §3, `src/kv/format.rs`'s BinaryExport).
type BinaryExport struct {
	Buffer []byte
	Memory []byte
}

// KeyspaceMetadata describes one registered keyspace (§3).
type KeyspaceMetadata struct {
	Name          string
	QualifiedName string
	IdlDefinition string
	TypeName      string
	TypeVersion   SemanticVersion
	TypeHash      uint32
	CreatedAt     time.Time
}

func (r keyspaceRecord) toMetadata() KeyspaceMetadata {
	return KeyspaceMetadata{
		Name:          r.Name,
		QualifiedName: r.QualifiedName,
		IdlDefinition: r.IdlDefinition,
		TypeName:      r.TypeName,
		TypeVersion:   r.TypeVersion,
		TypeHash:      r.TypeHash,
		CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
	}
}

// Options configures a Store. Parser is required; Logf/Verbose/Config
// mirror edb's Options{Logf, Verbose}, silent-by-default logging (SPEC_FULL
// §1.1).
type Options struct {
	Parser  IDLParser
	Logf    func(format string, args ...any)
	Verbose bool
	Config  *Config
}

// Store is the C7 TypedStore: a keyspace registry plus per-keyspace value
// CRUD and prefix/range listing layered over an OrderedEngine (§4.6).
type Store struct {
	engine  OrderedEngine
	parser  IDLParser
	logf    func(format string, args ...any)
	verbose bool
	cfg     *Config

	mu             sync.RWMutex
	graphs         map[string]TypeGraph
	typeRefs       map[string]TypeRef
	qualifiedIndex map[string]string // qualified_name -> keyspace

	counters storeCounters
}

func (s *Store) logOp(format string, args ...any) {
	if s.verbose && s.logf != nil {
		s.logf(format, args...)
	}
}

// Init creates a fresh store atop engine, failing AlreadyInitialized if
// engine already carries a storeState record (SPEC_FULL §3).
func Init(engine OrderedEngine, opt Options) (*Store, error) {
	st, err := loadStoreState(engine)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return nil, storeErrf(KindAlreadyInitialized, "", nil, nil, "store already initialized")
	}
	if err := saveStoreState(engine, &storeState{FormatVersion: currentStoreFormatVersion, CreatedAt: time.Now().Unix()}); err != nil {
		return nil, err
	}
	return newStore(engine, opt)
}

// Open attaches to an already-initialized store, failing NotInitialized if
// engine carries no storeState record.
func Open(engine OrderedEngine, opt Options) (*Store, error) {
	st, err := loadStoreState(engine)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, storeErrf(KindNotInitialized, "", nil, nil, "store not initialized")
	}
	return newStore(engine, opt)
}

func newStore(engine OrderedEngine, opt Options) (*Store, error) {
	if opt.Parser == nil {
		panic("canonkv: Options.Parser is required")
	}
	cfg := opt.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Store{
		engine:         engine,
		parser:         opt.Parser,
		logf:           opt.Logf,
		verbose:        opt.Verbose,
		cfg:            cfg,
		graphs:         make(map[string]TypeGraph),
		typeRefs:       make(map[string]TypeRef),
		qualifiedIndex: make(map[string]string),
	}
	records, err := s.loadAllKeyspaceRecords()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		s.qualifiedIndex[r.QualifiedName] = r.Name
	}
	return s, nil
}

func (s *Store) loadAllKeyspaceRecords() ([]keyspaceRecord, error) {
	base := metaKey("")
	kvs, err := s.engine.Range(base, prefixUpperBound(base), 0)
	if err != nil {
		return nil, err
	}
	out := make([]keyspaceRecord, 0, len(kvs))
	for _, kv := range kvs {
		var r keyspaceRecord
		if err := decodeMsgpack(kv.Value, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// validateTypeGraph walks the resolved type and everything it references,
// rejecting anything outside §3's constructor list and enforcing
// max_flag_count (§4.2's "flag count > 32 is rejected", generalized to
// cfg.MaxFlagCount).
func validateTypeGraph(g TypeGraph, ref TypeRef, maxFlags int, seen map[TypeRef]bool) error {
	if ref.IsPrimitive() {
		return nil
	}
	if seen[ref] {
		return nil
	}
	seen[ref] = true
	decl := g.Resolve(ref)
	switch decl.Kind {
	case KindInvalidType:
		return storeErrf(KindUnsupportedKind, "", nil, nil, "type %s uses an unsupported constructor", decl.QualifiedName)
	case KindFlags:
		if len(decl.Flags) > maxFlags {
			return storeErrf(KindUnsupportedKind, "", nil, nil, "type %s declares %d flags, exceeding max_flag_count %d", decl.QualifiedName, len(decl.Flags), maxFlags)
		}
	case KindList, KindAlias:
		return validateTypeGraph(g, decl.Elem, maxFlags, seen)
	case KindRecord, KindTuple:
		for _, f := range decl.Fields {
			if err := validateTypeGraph(g, f.Type, maxFlags, seen); err != nil {
				return err
			}
		}
	case KindVariant, KindEnum, KindOption, KindResult:
		for _, c := range decl.Cases {
			if c.Payload.IsValid() {
				if err := validateTypeGraph(g, c.Payload, maxFlags, seen); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RegisterType parses idlText, resolves typeName (or the sole exported
// type), validates it, and registers it under keyspace at typeVersion
// (§4.6). Re-registration over an existing keyspace requires force (§4.8
// rule 1); CreatedAt is always stamped fresh, so two identical force
// re-registrations differ only in CreatedAt, matching §8's idempotence
// property.
func (s *Store) RegisterType(keyspace, idlText, typeName string, typeVersion SemanticVersion, force bool) (KeyspaceMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadKeyspaceRecord(keyspace)
	if err != nil {
		return KeyspaceMetadata{}, err
	}
	if existing != nil && !force {
		return KeyspaceMetadata{}, storeErrf(KindKeyspaceExists, keyspace, nil, nil, "keyspace already registered")
	}

	var graph TypeGraph
	if err := safelyCall(func() (err error) {
		graph, err = s.parser.Parse(idlText)
		return err
	}); err != nil {
		return KeyspaceMetadata{}, storeErrf(KindIdlParseError, keyspace, nil, err, "parsing idl")
	}

	types := graph.ListTypes()
	var nt NamedType
	switch {
	case typeName != "":
		found := false
		for _, t := range types {
			if t.Name == typeName {
				nt, found = t, true
				break
			}
		}
		if !found {
			return KeyspaceMetadata{}, storeErrf(KindTypeNotFound, keyspace, nil, nil, "type %q not found", typeName)
		}
	case len(types) == 1:
		nt = types[0]
	default:
		return KeyspaceMetadata{}, storeErrf(KindTypeNotFound, keyspace, nil, nil, "no type_name given and idl exports %d types, not exactly one", len(types))
	}

	if err := validateTypeGraph(graph, nt.Ref, s.cfg.MaxFlagCount, map[TypeRef]bool{}); err != nil {
		return KeyspaceMetadata{}, err
	}

	rec := keyspaceRecord{
		Name:          keyspace,
		QualifiedName: nt.Name,
		IdlDefinition: idlText,
		TypeName:      nt.Name,
		TypeVersion:   typeVersion,
		TypeHash:      crc32.ChecksumIEEE([]byte(idlText)),
		CreatedAt:     time.Now().Unix(),
	}
	if err := s.engine.Put(metaKey(keyspace), encodeMsgpack(&rec)); err != nil {
		return KeyspaceMetadata{}, err
	}

	if existing != nil && existing.QualifiedName != rec.QualifiedName {
		delete(s.qualifiedIndex, existing.QualifiedName)
	}
	s.qualifiedIndex[rec.QualifiedName] = keyspace
	s.graphs[keyspace] = graph
	s.typeRefs[keyspace] = nt.Ref

	s.counters.registerCount.Add(1)
	s.logOp("REGISTER %s %s", keyspace, rec.QualifiedName)
	return rec.toMetadata(), nil
}

func (s *Store) loadKeyspaceRecord(keyspace string) (*keyspaceRecord, error) {
	raw, err := s.engine.Get(metaKey(keyspace))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	rec := new(keyspaceRecord)
	if err := decodeMsgpack(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetType returns keyspace's registered metadata, failing KeyspaceNotFound
// if it was never registered.
func (s *Store) GetType(keyspace string) (KeyspaceMetadata, error) {
	s.counters.getTypeCount.Add(1)
	rec, err := s.loadKeyspaceRecord(keyspace)
	if err != nil {
		return KeyspaceMetadata{}, err
	}
	if rec == nil {
		return KeyspaceMetadata{}, storeErrf(KindKeyspaceNotFound, keyspace, nil, nil, "keyspace not registered")
	}
	return rec.toMetadata(), nil
}

// ListTypes returns every registered keyspace's metadata, ordered by name.
func (s *Store) ListTypes() ([]KeyspaceMetadata, error) {
	records, err := s.loadAllKeyspaceRecords()
	if err != nil {
		return nil, err
	}
	out := make([]KeyspaceMetadata, len(records))
	for i, r := range records {
		out[i] = r.toMetadata()
	}
	return out, nil
}

// DeleteType removes keyspace's metadata and, if deleteData is set,
// range-deletes every value under it. Deleting an unregistered keyspace is
// a no-op, not an error (§4.6).
func (s *Store) DeleteType(keyspace string, deleteData bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadKeyspaceRecord(keyspace)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if err := s.engine.Delete(metaKey(keyspace)); err != nil {
		return err
	}
	delete(s.qualifiedIndex, rec.QualifiedName)
	delete(s.graphs, keyspace)
	delete(s.typeRefs, keyspace)

	if deleteData {
		prefix := valuePrefix(keyspace)
		kvs, err := s.engine.Range(prefix, prefixUpperBound(prefix), 0)
		if err != nil {
			return err
		}
		for _, kv := range kvs {
			if err := s.engine.Delete(kv.Key); err != nil {
				return err
			}
		}
	}
	s.counters.deleteTypeCount.Add(1)
	s.logOp("DELETE-TYPE %s (data=%v)", keyspace, deleteData)
	return nil
}

// KeyspaceForQualifiedName resolves a qualified type name back to the
// keyspace it's registered under (SPEC_FULL §3, the reverse index
// `src/kv/store.rs` maintains via META_QUALIFIED_PREFIX).
func (s *Store) KeyspaceForQualifiedName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.qualifiedIndex[name]
	return ks, ok
}

// loadGraph returns the cached TypeGraph+TypeRef for keyspace, reparsing
// from the persisted idl_definition if this Store instance hasn't built it
// yet (e.g. right after Open, before any RegisterType call this process).
func (s *Store) loadGraph(keyspace string) (TypeGraph, TypeRef, KeyspaceMetadata, error) {
	s.mu.RLock()
	g, hasG := s.graphs[keyspace]
	ref, hasRef := s.typeRefs[keyspace]
	s.mu.RUnlock()

	rec, err := s.loadKeyspaceRecord(keyspace)
	if err != nil {
		return nil, TypeRef{}, KeyspaceMetadata{}, err
	}
	if rec == nil {
		return nil, TypeRef{}, KeyspaceMetadata{}, storeErrf(KindKeyspaceNotFound, keyspace, nil, nil, "keyspace not registered")
	}
	if hasG && hasRef {
		return g, ref, rec.toMetadata(), nil
	}

	var graph TypeGraph
	if err := safelyCall(func() (err error) {
		graph, err = s.parser.Parse(rec.IdlDefinition)
		return err
	}); err != nil {
		return nil, TypeRef{}, KeyspaceMetadata{}, storeErrf(KindIdlParseError, keyspace, nil, err, "reparsing stored idl")
	}
	resolvedRef, ok := graph.Lookup(rec.TypeName)
	if !ok {
		return nil, TypeRef{}, KeyspaceMetadata{}, storeErrf(KindTypeNotFound, keyspace, nil, nil, "stored type_name %q no longer in idl", rec.TypeName)
	}

	s.mu.Lock()
	s.graphs[keyspace] = graph
	s.typeRefs[keyspace] = resolvedRef
	s.mu.Unlock()

	return graph, resolvedRef, rec.toMetadata(), nil
}

func validateKey(key string) error {
	if key == "" || bytes.IndexByte([]byte(key), 0) >= 0 {
		return storeErrf(KindKeyInvalid, "", []byte(key), nil, "key is empty or contains the reserved separator")
	}
	return nil
}

// checkValueLimits recursively enforces max_list_elements and
// max_flag_count against the value being written, ahead of Lower — a
// cheap, config-driven check the core codec itself doesn't perform (§6).
func checkValueLimits(v RuntimeValue, cfg *Config) error {
	switch v.Kind {
	case KindList:
		if len(v.Items) > cfg.MaxListElements {
			return storeErrf(KindLimitExceeded, "", nil, nil, "list has %d elements, exceeding max_list_elements %d", len(v.Items), cfg.MaxListElements)
		}
		fallthrough
	case KindTuple, KindRecord:
		for _, item := range v.Items {
			if err := checkValueLimits(item, cfg); err != nil {
				return err
			}
		}
	case KindFlags:
		if len(v.Flags) > cfg.MaxFlagCount {
			return storeErrf(KindLimitExceeded, "", nil, nil, "%d flags set, exceeding max_flag_count %d", len(v.Flags), cfg.MaxFlagCount)
		}
	case KindVariant, KindOption, KindResult:
		if v.Payload != nil {
			return checkValueLimits(*v.Payload, cfg)
		}
	}
	return nil
}

// Set lowers v against keyspace's registered type and writes it under key,
// overwriting any prior value (§4.6).
func (s *Store) Set(keyspace, key string, v RuntimeValue) error {
	if err := validateKey(key); err != nil {
		return err
	}
	graph, ref, meta, err := s.loadGraph(keyspace)
	if err != nil {
		return err
	}
	if err := checkValueLimits(v, s.cfg); err != nil {
		return err
	}

	mem := NewLinearMemory()
	main, err := Lower(graph, ref, v, mem)
	if err != nil {
		return err
	}
	if mem.Len() > s.cfg.MaxMemoryBytes {
		return storeErrf(KindLimitExceeded, keyspace, []byte(key), nil, "encoded memory is %d bytes, exceeding max_memory_bytes %d", mem.Len(), s.cfg.MaxMemoryBytes)
	}

	env := StoredEnvelope{FormatVersion: currentEnvelopeFormatVersion, TypeVersion: meta.TypeVersion, Value: main}
	if mem.Len() > 0 {
		env.Memory = mem.Bytes()
	}
	encoded, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := s.engine.Put(valueKey(keyspace, key), encoded); err != nil {
		return err
	}
	s.counters.setCount.Add(1)
	s.logOp("SET %s/%s", keyspace, key)
	return nil
}

func (s *Store) loadEnvelope(keyspace, key string) (StoredEnvelope, KeyspaceMetadata, error) {
	_, _, meta, err := s.loadGraph(keyspace)
	if err != nil {
		return StoredEnvelope{}, KeyspaceMetadata{}, err
	}
	raw, err := s.engine.Get(valueKey(keyspace, key))
	if err != nil {
		return StoredEnvelope{}, KeyspaceMetadata{}, err
	}
	if raw == nil {
		return StoredEnvelope{}, KeyspaceMetadata{}, storeErrf(KindKeyNotFound, keyspace, []byte(key), nil, "key not found")
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return StoredEnvelope{}, KeyspaceMetadata{}, err
	}
	if !env.TypeVersion.CanRead(meta.TypeVersion) {
		return StoredEnvelope{}, KeyspaceMetadata{}, storeErrf(KindIncompatibleVersion, keyspace, []byte(key), nil, "stored version %s not readable under current %s", env.TypeVersion, meta.TypeVersion)
	}
	return env, meta, nil
}

// Get loads, version-gates (§4.8 rule 2), and Lifts the value under key.
func (s *Store) Get(keyspace, key string) (RuntimeValue, error) {
	env, _, err := s.loadEnvelope(keyspace, key)
	if err != nil {
		return RuntimeValue{}, err
	}
	graph, ref, _, err := s.loadGraph(keyspace)
	if err != nil {
		return RuntimeValue{}, err
	}
	mem := LinearMemoryFrom(env.Memory)
	v, err := Lift(graph, ref, env.Value, mem)
	if err != nil {
		return RuntimeValue{}, err
	}
	s.counters.getCount.Add(1)
	s.logOp("GET %s/%s", keyspace, key)
	return v, nil
}

// GetBinary is Get without the Lift step, handing the raw envelope payload
// to callers (the map/reduce facility) that work directly on bytes.
func (s *Store) GetBinary(keyspace, key string) (BinaryExport, error) {
	env, _, err := s.loadEnvelope(keyspace, key)
	if err != nil {
		return BinaryExport{}, err
	}
	return BinaryExport{Buffer: env.Value, Memory: env.Memory}, nil
}

// Delete removes key, succeeding if it was already absent, failing
// KeyspaceNotFound if keyspace itself was never registered.
func (s *Store) Delete(keyspace, key string) error {
	if _, err := s.GetType(keyspace); err != nil {
		return err
	}
	if err := s.engine.Delete(valueKey(keyspace, key)); err != nil {
		return err
	}
	s.counters.deleteCount.Add(1)
	s.logOp("DELETE %s/%s", keyspace, key)
	return nil
}

// ListKeysOptions filters a ListKeys scan (§4.6).
type ListKeysOptions struct {
	Prefix []byte // exact bytewise prefix match
	Start  []byte // inclusive lower bound
	End    []byte // exclusive upper bound
	Limit  int    // 0 means ListLimitDefault; clamped to ListLimitMax
}

// ListKeys range-scans keyspace's values in ascending lexicographic order,
// honouring Prefix/Start/End/Limit (§4.6, §8's key-ordering and
// prefix-slice properties).
func (s *Store) ListKeys(keyspace string, opts ListKeysOptions) ([][]byte, error) {
	if _, err := s.GetType(keyspace); err != nil {
		return nil, err
	}
	base := valuePrefix(keyspace)

	lo := append([]byte(nil), base...)
	if opts.Prefix != nil {
		lo = append(lo, opts.Prefix...)
	}
	var hi []byte
	if opts.Prefix != nil {
		hi = prefixUpperBound(lo)
	} else {
		hi = prefixUpperBound(base)
	}
	if opts.Start != nil {
		candidate := append(append([]byte(nil), base...), opts.Start...)
		if bytes.Compare(candidate, lo) > 0 {
			lo = candidate
		}
	}
	if opts.End != nil {
		candidate := append(append([]byte(nil), base...), opts.End...)
		if hi == nil || bytes.Compare(candidate, hi) < 0 {
			hi = candidate
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.ListLimitDefault
	}
	if limit > s.cfg.ListLimitMax {
		limit = s.cfg.ListLimitMax
	}

	kvs, err := s.engine.Range(lo, hi, limit)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Key[len(base):]
	}
	s.counters.listKeysCount.Add(1)
	return out, nil
}
