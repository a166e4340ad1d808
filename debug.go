package canonkv

import (
	"fmt"
	"strings"
)

// DumpFlags selects what Store.Dump includes in its report, mirroring
// edb's debug.go DumpFlags bitset (DumpTableHeaders/DumpRows/DumpStats/...)
// generalized from per-table bucket dumps to per-keyspace value-count
// summaries, since an OrderedEngine has no bbolt bucket to introspect.
type DumpFlags uint64

const (
	DumpKeyspaceHeaders = DumpFlags(1 << iota)
	DumpKeys
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

// Contains reports whether f includes every bit set in v.
func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

var dumpSep = strings.Repeat("=", 72)

// Dump renders a plain-text debugging report of every registered keyspace,
// in the style of edb's Tx.Dump/dumpTable. Operation counters are reported
// separately, by Store.Stats (monitoring.go).
func (s *Store) Dump(f DumpFlags) (string, error) {
	metas, err := s.ListTypes()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, meta := range metas {
		if err := s.dumpKeyspace(&buf, f, meta); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (s *Store) dumpKeyspace(w *strings.Builder, f DumpFlags, meta KeyspaceMetadata) error {
	keys, err := s.ListKeys(meta.Name, ListKeysOptions{Limit: s.cfg.ListLimitMax})
	if err != nil {
		return err
	}

	if f.Contains(DumpKeyspaceHeaders) {
		fmt.Fprintln(w, dumpSep)
		fmt.Fprintf(w, "%s (%s, type_version %s, %d keys)\n", meta.Name, meta.QualifiedName, meta.TypeVersion, len(keys))
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: type_hash = %08x, created_at = %s\n", meta.Name, meta.TypeHash, meta.CreatedAt)
	}
	if f.Contains(DumpKeys) {
		for i, k := range keys {
			fmt.Fprintf(w, "%s.%d = %q\n", meta.Name, i+1, string(k))
		}
	}
	return nil
}
