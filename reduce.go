package canonkv

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// mapReduceFetchConcurrency bounds how many envelopes MapOperation/
// ReduceOperation fetch from the engine at once (§2 DOMAIN STACK: bounded-
// concurrency fan-out via golang.org/x/sync/errgroup).
const mapReduceFetchConcurrency = 8

// KeyFilter selects which keys of a keyspace a map/reduce operation visits
// (SUPPLEMENTED §3, `src/wasm/map.rs`'s KeyFilter).
type KeyFilter struct {
	Kind  KeyFilterKind
	Key   string // Single
	Value string // Prefix
	Start string // Range, empty means unbounded
	End   string // Range, empty means unbounded
}

// KeyFilterKind discriminates KeyFilter's variants.
type KeyFilterKind int

const (
	KeyFilterAll KeyFilterKind = iota
	KeyFilterSingle
	KeyFilterPrefix
	KeyFilterRange
)

// AllKeys builds a KeyFilter matching every key in the keyspace.
func AllKeys() KeyFilter { return KeyFilter{Kind: KeyFilterAll} }

// SingleKey builds a KeyFilter matching exactly one key.
func SingleKey(key string) KeyFilter { return KeyFilter{Kind: KeyFilterSingle, Key: key} }

// KeyPrefix builds a KeyFilter matching all keys starting with prefix.
func KeyPrefix(prefix string) KeyFilter { return KeyFilter{Kind: KeyFilterPrefix, Value: prefix} }

// KeyRange builds a KeyFilter matching keys in [start, end). Either bound
// may be empty for unbounded.
func KeyRange(start, end string) KeyFilter {
	return KeyFilter{Kind: KeyFilterRange, Start: start, End: end}
}

// ModuleRunner is the sandboxed-module collaborator a map/reduce caller
// supplies (SUPPLEMENTED §3, `src/wasm/runner.rs`'s WasmRunner call_*
// methods). canonkv only defines the contract; loading and executing the
// actual module is out of core scope, same as IDLParser/ValueParser.
type ModuleRunner interface {
	InitState(ctx context.Context) (BinaryExport, error)
	Filter(ctx context.Context, value BinaryExport) (bool, error)
	Transform(ctx context.Context, value BinaryExport) (BinaryExport, error)
	Reduce(ctx context.Context, state, value BinaryExport) (BinaryExport, error)
}

// resolveKeys lists the keys a KeyFilter selects, per §3's get_keys. The
// listing runs with Limit set to Config.ListLimitMax, so at most that many
// keys are returned.
func resolveKeys(s *Store, keyspace string, filter KeyFilter) ([]string, error) {
	switch filter.Kind {
	case KeyFilterSingle:
		return []string{filter.Key}, nil
	case KeyFilterPrefix:
		keys, err := s.ListKeys(keyspace, ListKeysOptions{Prefix: []byte(filter.Value), Limit: s.cfg.ListLimitMax})
		if err != nil {
			return nil, err
		}
		return bytesToStrings(keys), nil
	case KeyFilterRange:
		opts := ListKeysOptions{Limit: s.cfg.ListLimitMax}
		if filter.Start != "" {
			opts.Start = []byte(filter.Start)
		}
		if filter.End != "" {
			opts.End = []byte(filter.End)
		}
		keys, err := s.ListKeys(keyspace, opts)
		if err != nil {
			return nil, err
		}
		return bytesToStrings(keys), nil
	default: // KeyFilterAll
		keys, err := s.ListKeys(keyspace, ListKeysOptions{Limit: s.cfg.ListLimitMax})
		if err != nil {
			return nil, err
		}
		return bytesToStrings(keys), nil
	}
}

func bytesToStrings(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// fetchEnvelopes loads the BinaryExport for each key with bounded
// concurrency, skipping keys deleted between list and get (§3's "Key was
// deleted between list and get" comment). Order matches keys.
func fetchEnvelopes(ctx context.Context, s *Store, keyspace string, keys []string) ([]*BinaryExport, error) {
	out := make([]*BinaryExport, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(mapReduceFetchConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			export, err := s.GetBinary(keyspace, key)
			if err != nil {
				var se *StoreError
				if errors.As(err, &se) && se.Kind == KindKeyNotFound {
					return nil
				}
				return err
			}
			out[i] = &export
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MapResult is the outcome of a MapOperation, mirroring `src/wasm/map.rs`'s
// MapResult.
type MapResult struct {
	Values        []MappedValue
	FilteredCount int
	Errors        []KeyError
}

// MappedValue is one (key, transformed value) pair produced by a map.
type MappedValue struct {
	Key   string
	Value BinaryExport
}

// KeyError pairs a key with the error its processing raised, so one bad
// value doesn't abort the whole operation.
type KeyError struct {
	Key string
	Err error
}

// HasErrors reports whether any key failed during the operation.
func (r MapResult) HasErrors() bool { return len(r.Errors) > 0 }

// MapOperation runs a ModuleRunner's filter/transform over a keyspace
// (SUPPLEMENTED §3, `src/wasm/map.rs`'s MapOperation).
type MapOperation struct {
	Store  *Store
	Runner ModuleRunner
}

// Execute runs the map operation. limit bounds the number of keys
// *considered* (i.e. the number that reach the filter call), matching the
// original's count increment placement after filter/transform, not before
// (§4 Open Question decision).
func (op *MapOperation) Execute(ctx context.Context, keyspace string, filter KeyFilter, limit int) (MapResult, error) {
	result := MapResult{}

	keys, err := resolveKeys(op.Store, keyspace, filter)
	if err != nil {
		return MapResult{}, err
	}
	exports, err := fetchEnvelopes(ctx, op.Store, keyspace, keys)
	if err != nil {
		return MapResult{}, err
	}

	count := 0
	for i, key := range keys {
		if limit > 0 && count >= limit {
			break
		}
		export := exports[i]
		if export == nil {
			continue // key deleted between list and get
		}

		var should bool
		err := safelyCall(func() (err error) {
			should, err = op.Runner.Filter(ctx, *export)
			return err
		})
		if err != nil {
			result.Errors = append(result.Errors, KeyError{Key: key, Err: err})
			count++
			continue
		}
		if !should {
			result.FilteredCount++
			count++
			continue
		}

		var transformed BinaryExport
		err = safelyCall(func() (err error) {
			transformed, err = op.Runner.Transform(ctx, *export)
			return err
		})
		if err != nil {
			result.Errors = append(result.Errors, KeyError{Key: key, Err: err})
		} else {
			result.Values = append(result.Values, MappedValue{Key: key, Value: transformed})
		}
		count++
	}
	return result, nil
}

// ReduceResult is the outcome of a ReduceOperation, mirroring
// `src/wasm/reduce.rs`'s ReduceResult.
type ReduceResult struct {
	FinalState     BinaryExport
	ProcessedCount int
}

// ReduceOperation folds a ModuleRunner's reduce function over a keyspace
// (SUPPLEMENTED §3, `src/wasm/reduce.rs`'s ReduceOperation).
type ReduceOperation struct {
	Store  *Store
	Runner ModuleRunner
}

// Execute runs the reduce (fold-left) operation. limit bounds the number of
// keys considered, same semantics as MapOperation.Execute.
func (op *ReduceOperation) Execute(ctx context.Context, keyspace string, filter KeyFilter, limit int) (ReduceResult, error) {
	var state BinaryExport
	if err := safelyCall(func() (err error) {
		state, err = op.Runner.InitState(ctx)
		return err
	}); err != nil {
		return ReduceResult{}, err
	}

	keys, err := resolveKeys(op.Store, keyspace, filter)
	if err != nil {
		return ReduceResult{}, err
	}
	exports, err := fetchEnvelopes(ctx, op.Store, keyspace, keys)
	if err != nil {
		return ReduceResult{}, err
	}

	processed := 0
	for i := range keys {
		if limit > 0 && processed >= limit {
			break
		}
		export := exports[i]
		if export == nil {
			continue // key deleted between list and get
		}
		next := state
		if err := safelyCall(func() (err error) {
			next, err = op.Runner.Reduce(ctx, state, *export)
			return err
		}); err != nil {
			return ReduceResult{}, err
		}
		state = next
		processed++
	}

	return ReduceResult{FinalState: state, ProcessedCount: processed}, nil
}
