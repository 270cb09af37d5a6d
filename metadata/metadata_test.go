package metadata

import (
	"testing"

	"github.com/Nyrone/ignite"
)

func asCodecError(err error, target **ignite.CodecError) bool {
	ce, ok := err.(*ignite.CodecError)
	if ok {
		*target = ce
	}
	return ok
}

func TestMergeUnionsFieldsAndSchemas(t *testing.T) {
	m := newTypeMetadata(1, "Point", "")
	m, err := m.merge(map[string]byte{"X": 0x03}, 100)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	m, err = m.merge(map[string]byte{"Y": 0x03}, 200)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(m.Fields) != 2 || m.Fields["X"] != 0x03 || m.Fields["Y"] != 0x03 {
		t.Fatalf("Fields = %v", m.Fields)
	}
	if len(m.SchemaIDs) != 2 {
		t.Fatalf("SchemaIDs = %v", m.SchemaIDs)
	}
}

func TestMergeSameFieldSameTagIsFine(t *testing.T) {
	m := newTypeMetadata(1, "Point", "")
	m, err := m.merge(map[string]byte{"X": 0x03}, 100)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := m.merge(map[string]byte{"X": 0x03}, 200); err != nil {
		t.Fatalf("merge with identical tag should not conflict: %v", err)
	}
}

func TestMergeConflictingTagIsMetadataConflict(t *testing.T) {
	m := newTypeMetadata(1, "Point", "")
	m, err := m.merge(map[string]byte{"X": 0x03}, 100)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	_, err = m.merge(map[string]byte{"X": 0x08}, 200)
	if err == nil {
		t.Fatal("expected a MetadataConflict error")
	}
	var ce *ignite.CodecError
	if !asCodecError(err, &ce) || ce.Kind != ignite.MetadataConflict {
		t.Fatalf("err = %v, want Kind == MetadataConflict", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := newTypeMetadata(1, "Point", "")
	m, err := m.merge(map[string]byte{"X": 0x03}, 100)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	c := m.clone()
	c.Fields["Z"] = 0x08
	if _, ok := m.Fields["Z"]; ok {
		t.Fatal("clone must not share the Fields map with the original")
	}
}
