package canonkv

import "sync/atomic"

// storeCounters are the atomic operation counters every Store carries,
// grounded on db.go's DB.{ReadCount,WriteCount,ReaderCount,WriterCount}
// atomics — canonkv has no reader/writer transaction concept to count
// (§5: the engine owns its own concurrency), so only per-operation-kind
// counters survive the generalization.
type storeCounters struct {
	registerCount   atomic.Uint64
	getTypeCount    atomic.Uint64
	deleteTypeCount atomic.Uint64
	setCount        atomic.Uint64
	getCount        atomic.Uint64
	deleteCount     atomic.Uint64
	listKeysCount   atomic.Uint64
}

// Stats is a point-in-time snapshot of a Store's operation counters,
// mirroring the teacher's TableStats snapshot-struct shape (monitoring.go)
// but counting operations rather than bucket byte sizes, since an
// OrderedEngine has no bbolt-style bucket.Stats() to report through.
type Stats struct {
	RegisterCount   uint64
	GetTypeCount    uint64
	DeleteTypeCount uint64
	SetCount        uint64
	GetCount        uint64
	DeleteCount     uint64
	ListKeysCount   uint64
}

// Stats returns a snapshot of s's operation counters.
func (s *Store) Stats() Stats {
	return Stats{
		RegisterCount:   s.counters.registerCount.Load(),
		GetTypeCount:    s.counters.getTypeCount.Load(),
		DeleteTypeCount: s.counters.deleteTypeCount.Load(),
		SetCount:        s.counters.setCount.Load(),
		GetCount:        s.counters.getCount.Load(),
		DeleteCount:     s.counters.deleteCount.Load(),
		ListKeysCount:   s.counters.listKeysCount.Load(),
	}
}
