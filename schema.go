package ignite

// Schema is one ordered field layout observed for a type: the sequence
// of fieldIds in the order their values appear on the wire. Two Schemas
// with equal sequences have equal schemaId.
type Schema struct {
	TypeID   int32
	FieldIDs []int32
	id       int32
	idValid  bool
}

// NewSchema builds a Schema from an ordered fieldId sequence, computing
// its schemaId eagerly (cheap, and every caller needs it immediately).
func NewSchema(typeID int32, fieldIDs []int32) Schema {
	s := Schema{TypeID: typeID, FieldIDs: append([]int32(nil), fieldIDs...)}
	s.id = computeSchemaID(s.FieldIDs)
	s.idValid = true
	return s
}

func (s Schema) ID() int32 {
	if !s.idValid {
		return computeSchemaID(s.FieldIDs)
	}
	return s.id
}

// Equal compares two schemas by their fieldId sequence, not by ID alone
// (ID equality is checked separately by callers that care about hash
// collisions, e.g. SchemaRegistry.Insert).
func (s Schema) Equal(other Schema) bool {
	if len(s.FieldIDs) != len(other.FieldIDs) {
		return false
	}
	for i, id := range s.FieldIDs {
		if other.FieldIDs[i] != id {
			return false
		}
	}
	return true
}

// IndexOf returns the position of fieldID within the schema's ordered
// sequence, or -1 if absent.
func (s Schema) IndexOf(fieldID int32) int {
	for i, id := range s.FieldIDs {
		if id == fieldID {
			return i
		}
	}
	return -1
}

// computeSchemaID hashes the ordered fieldId sequence with an FNV-1a
// variant run over each int32's little-endian bytes in turn. There is
// no ecosystem library for "hash a sequence of already-hashed 32-bit
// ids" (FNV libraries hash byte streams, not typed integer sequences),
// so this is implemented by hand and frozen the same way the IdMapper
// hash is: change it and every previously emitted schemaId changes.
func computeSchemaID(fieldIDs []int32) int32 {
	const fnvOffsetBasis = uint32(0x811c9dc5)
	const fnvPrime = uint32(16777619)
	h := fnvOffsetBasis
	for _, id := range fieldIDs {
		u := uint32(id)
		for i := 0; i < 4; i++ {
			h ^= u & 0xff
			h *= fnvPrime
			u >>= 8
		}
	}
	return int32(h)
}
