package tripgraph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ValueKind discriminates the closed set of fact value shapes.
type ValueKind int

const (
	// KindScalar is a single string-like fact ("Seaside Inn", "07:30").
	KindScalar ValueKind = iota
	// KindScalarList is an ordered set of scalars (tags, tips).
	KindScalarList
	// KindRecord is one nested key->value map (a weather report, a profile).
	KindRecord
	// KindRecordList is an ordered list of records keyed by an "id" field
	// (bookings, transfers, itinerary events).
	KindRecordList
)

// Value is the closed sum type for Fact Store entries. Exactly four shapes
// exist: Scalar, ScalarList, Record, RecordList. Keeping the set closed lets
// merge and extraction logic switch exhaustively instead of duck-typing.
type Value interface {
	Kind() ValueKind
	// String renders the value for instruction hydration and logs.
	String() string
	// clone returns a deep copy so snapshots never alias live store state.
	clone() Value
}

// Scalar is a single textual fact.
type Scalar string

func (Scalar) Kind() ValueKind  { return KindScalar }
func (s Scalar) String() string { return string(s) }
func (s Scalar) clone() Value   { return s }

// ScalarList is an ordered set of scalar facts.
type ScalarList []Scalar

func (ScalarList) Kind() ValueKind { return KindScalarList }

func (l ScalarList) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func (l ScalarList) clone() Value {
	return append(ScalarList(nil), l...)
}

// Record is one nested map of named values.
type Record map[string]Value

func (Record) Kind() ValueKind { return KindRecord }

func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r[k].String()))
	}
	return strings.Join(parts, ", ")
}

func (r Record) clone() Value {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.clone()
	}
	return out
}

// Field returns the record's value for the first key that is present and
// non-empty, tried in order. Used by field extraction to tolerate naming
// variants inside records.
func (r Record) Field(keys ...string) (Value, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil && v.String() != "" {
			return v, true
		}
	}
	return nil, false
}

// RecordList is an ordered list of records. When records carry an "id"
// field, merging is upsert-by-id with field-level record merge.
type RecordList []Record

func (RecordList) Kind() ValueKind { return KindRecordList }

func (l RecordList) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		parts[i] = "{" + r.String() + "}"
	}
	return strings.Join(parts, "; ")
}

func (l RecordList) clone() Value {
	out := make(RecordList, len(l))
	for i, r := range l {
		out[i] = r.clone().(Record)
	}
	return out
}

// recordID returns the record's "id" field, if any.
func recordID(r Record) (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(Scalar)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// FactStore is the session-scoped bag of everything learned about the trip.
// Writes are append-only merges; entries are never wholesale destroyed.
// Within a turn dispatch is serialized, but a session's turns may race (two
// requests on the same session), so the store carries its own lock.
type FactStore struct {
	mu    sync.RWMutex
	facts map[string]Value
}

// NewFactStore creates an empty fact store.
func NewFactStore() *FactStore {
	return &FactStore{facts: make(map[string]Value)}
}

// Get retrieves a fact by key.
func (fs *FactStore) Get(key string) (Value, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	v, ok := fs.facts[key]
	return v, ok
}

// Keys returns the sorted set of populated fact keys.
func (fs *FactStore) Keys() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	keys := make([]string, 0, len(fs.facts))
	for k := range fs.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of populated keys.
func (fs *FactStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.facts)
}

// Put merges a single fact into the store under key.
func (fs *FactStore) Put(key string, v Value) {
	if v == nil {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.facts[key] = mergeValue(fs.facts[key], v)
}

// Merge applies an incremental update, key by key, under one lock hold.
func (fs *FactStore) Merge(update map[string]Value) {
	if len(update) == 0 {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for k, v := range update {
		if v == nil {
			continue
		}
		fs.facts[k] = mergeValue(fs.facts[k], v)
	}
}

// Snapshot returns a deep copy of the current facts, safe to hand to
// synthesis or to inspect without holding the store lock.
func (fs *FactStore) Snapshot() map[string]Value {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make(map[string]Value, len(fs.facts))
	for k, v := range fs.facts {
		out[k] = v.clone()
	}
	return out
}

// mergeValue implements the store's merge rule:
//   - record list + record list: upsert by record id, merging fields in
//     place when the id matches, appending otherwise
//   - scalar list + scalar list: append-if-absent (set semantics)
//   - everything else: incoming value wins
func mergeValue(existing, incoming Value) Value {
	if existing == nil {
		return incoming.clone()
	}
	switch inc := incoming.(type) {
	case RecordList:
		cur, ok := existing.(RecordList)
		if !ok {
			return incoming.clone()
		}
		return mergeRecordLists(cur, inc)
	case ScalarList:
		cur, ok := existing.(ScalarList)
		if !ok {
			return incoming.clone()
		}
		return mergeScalarLists(cur, inc)
	default:
		return incoming.clone()
	}
}

func mergeRecordLists(cur, inc RecordList) RecordList {
	merged := cur.clone().(RecordList)
	idToIdx := make(map[string]int, len(merged))
	for i, r := range merged {
		if id, ok := recordID(r); ok {
			idToIdx[id] = i
		}
	}
	for _, item := range inc {
		id, ok := recordID(item)
		if !ok {
			merged = append(merged, item.clone().(Record))
			continue
		}
		if idx, exists := idToIdx[id]; exists {
			for k, v := range item {
				merged[idx][k] = v.clone()
			}
		} else {
			merged = append(merged, item.clone().(Record))
			idToIdx[id] = len(merged) - 1
		}
	}
	return merged
}

func mergeScalarLists(cur, inc ScalarList) ScalarList {
	merged := append(ScalarList(nil), cur...)
	seen := make(map[Scalar]struct{}, len(merged))
	for _, s := range merged {
		seen[s] = struct{}{}
	}
	for _, s := range inc {
		if _, dup := seen[s]; dup {
			continue
		}
		merged = append(merged, s)
		seen[s] = struct{}{}
	}
	return merged
}
