package ignite

import "sync"

// SchemaRegistry is a per-typeId concurrent cache of schemaId -> Schema.
// Reads are lock-free on the hot path; inserts are serialized per typeId
// and idempotent, grounded on the teacher's reflect.go sync.Map-backed
// typeInfoCache (supplemented feature: schema-diff-free fast path).
type SchemaRegistry struct {
	byType sync.Map // int32 typeId -> *sync.Map (int32 schemaId -> Schema)
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{}
}

func (r *SchemaRegistry) typeMap(typeID int32, create bool) *sync.Map {
	if v, ok := r.byType.Load(typeID); ok {
		return v.(*sync.Map)
	}
	if !create {
		return nil
	}
	m := &sync.Map{}
	actual, _ := r.byType.LoadOrStore(typeID, m)
	return actual.(*sync.Map)
}

// Lookup returns the Schema registered for (typeID, schemaID), or
// ok == false if absent.
func (r *SchemaRegistry) Lookup(typeID, schemaID int32) (Schema, bool) {
	tm := r.typeMap(typeID, false)
	if tm == nil {
		return Schema{}, false
	}
	v, ok := tm.Load(schemaID)
	if !ok {
		return Schema{}, false
	}
	return v.(Schema), true
}

// Insert registers s under its own schemaId. A second insert of an
// equal schema is a no-op; a second insert of an unequal schema under
// the same (typeID, schemaId) is a fatal invariant violation, since
// schemaId collisions within one type would make random field access
// ambiguous.
func (r *SchemaRegistry) Insert(s Schema) error {
	tm := r.typeMap(s.TypeID, true)
	id := s.ID()
	for {
		existing, loaded := tm.LoadOrStore(id, s)
		if !loaded {
			return nil
		}
		old := existing.(Schema)
		if old.Equal(s) {
			return nil
		}
		return &CodecError{
			Kind:     TypeConfigError,
			TypeID:   s.TypeID,
			SchemaID: id,
			Msg:      "schemaId collision between two distinct field sequences",
		}
	}
}

// Clear drops every schema known for typeID. Exposed for the
// UnknownSchema end-to-end testable property (spec §8 scenario 4).
func (r *SchemaRegistry) Clear(typeID int32) {
	r.byType.Delete(typeID)
}
