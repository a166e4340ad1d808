/*
Package canonkv implements a typed, schema-enforced key-value store for
values whose shape is declared in an interface-definition language (IDL).

We implement:

1. A Canonical ABI codec (Lower/Lift), converting between a human-facing
RuntimeValue and the flat, alignment-exact binary layout used to persist it,
spilling variable-length data (strings, lists) into a companion LinearMemory
region addressed by pointer+length pairs.

2. A TypedStore layered over an ordered byte-keyed engine: every keyspace is
bound to exactly one declared type, every value is wrapped in a
self-describing envelope carrying the type's semantic version, and every
read is gated against that version before being lifted back to text.

3. A CompatibilityPolicy governing when a type may be re-registered over an
existing one, and when a stored value's recorded version is still readable
under the keyspace's current registered version.

# Technical Details

**Buckets.** The engine is a flat ordered byte-keyspace, not a tree of
nested buckets: two logical key families share one namespace, separated by
a reserved NUL byte — "T\x00{keyspace}" for keyspace metadata and
"V\x00{keyspace}\x00{key}" for values. A flat database like Redis could
simulate the nested layout some KV stores prefer; we go the other way and
simulate buckets with key prefixes, because the ordered-engine contract in
§6 only promises prefix/range scans, not real buckets.

**Binary encoding.**

Main buffer: the fixed-size flat layout of the value, per the Canonical ABI
alignment rules (LayoutCalculator). Variable-length children write their
bytes into LinearMemory and leave only an (offset, length) pair in the main
buffer.

Envelope: format_version, type_version, value bytes, optional memory bytes —
itself encoded via Lower/Lift against a fixed, compiled-in type graph.

Stored key-value record: the envelope bytes, written under the value key,
with no framing — the engine already knows the record length.
*/
package canonkv
