// Package metadata implements the MetadataCoordinator named by the
// core codec: detecting new schemas as they are written, merging
// per-type field/schema metadata, and publishing it through a
// caller-supplied Transport, durably logging every publish attempt so
// it can be replayed after a restart before the cluster has
// acknowledged it.
package metadata

import (
	"context"
	"fmt"

	"github.com/Nyrone/ignite"
)

// TypeMetadata is the published description of one user type,
// accumulated across every schema observed for it.
type TypeMetadata struct {
	TypeID      int32
	TypeName    string
	AffinityKey string
	Fields      map[string]byte // field name -> primitive type tag
	SchemaIDs   map[int32]struct{}
}

func newTypeMetadata(typeID int32, typeName, affinityKey string) TypeMetadata {
	return TypeMetadata{
		TypeID:      typeID,
		TypeName:    typeName,
		AffinityKey: affinityKey,
		Fields:      make(map[string]byte),
		SchemaIDs:   make(map[int32]struct{}),
	}
}

func (m TypeMetadata) clone() TypeMetadata {
	c := newTypeMetadata(m.TypeID, m.TypeName, m.AffinityKey)
	for k, v := range m.Fields {
		c.Fields[k] = v
	}
	for id := range m.SchemaIDs {
		c.SchemaIDs[id] = struct{}{}
	}
	return c
}

// merge unions m's fields and schemaIds with those newly observed on
// desc/schema, per spec §6.4: a type-tag conflict for the same field
// name across two schemas is a fatal MetadataConflict, since it means
// the same field name means two different things cluster-wide.
func (m TypeMetadata) merge(fields map[string]byte, schemaID int32) (TypeMetadata, error) {
	out := m.clone()
	for name, tag := range fields {
		if existing, ok := out.Fields[name]; ok && existing != tag {
			return TypeMetadata{}, &ignite.CodecError{
				Kind:   ignite.MetadataConflict,
				TypeID: out.TypeID,
				Msg:    fmt.Sprintf("field %q: type tag %#x conflicts with previously published %#x", name, tag, existing),
			}
		}
		out.Fields[name] = tag
	}
	out.SchemaIDs[schemaID] = struct{}{}
	return out, nil
}

// Transport publishes a fully-merged TypeMetadata to the rest of the
// cluster (or, in a single-process deployment, to any interested
// local listener). Implementations MAY block until acknowledged;
// Coordinator treats a returned error as "retry later" and leaves the
// record in the outbox for the next Open's replay.
type Transport interface {
	Publish(ctx context.Context, m TypeMetadata) error
}
