package ignite

import "reflect"

// ObjectBuilder produces a modified copy of a BinaryObject without
// fully deserializing it into a live Go value: a copy-on-write overlay
// of (fieldId -> encoded bytes) sits over the original object, merged
// with the original's fields at Build() time. Supplemented feature #6,
// grounded on kvo's MutableRecord/MutableMap delta-over-immutable
// builder pattern (mutable.go's Pack() merging an overlay with the
// original packed data), adapted here from word-packed uint64 slots to
// fieldId-addressed encoded byte ranges.
type ObjectBuilder struct {
	ctx     *Context
	desc    *TypeDescriptor
	orig    header
	bytes   []byte
	start   int
	overlay map[int32][]byte
	removed map[int32]bool
	order   []int32 // fieldIds in the order SetField was called, for new fields
}

func newObjectBuilder(ctx *Context, desc *TypeDescriptor, h header, bytes []byte, start int) *ObjectBuilder {
	return &ObjectBuilder{
		ctx:     ctx,
		desc:    desc,
		orig:    h,
		bytes:   bytes,
		start:   start,
		overlay: make(map[int32][]byte),
		removed: make(map[int32]bool),
	}
}

func (b *ObjectBuilder) mapper() IdMapper {
	if b.desc.idMapper != nil {
		return b.desc.idMapper
	}
	return b.ctx.idMapper
}

// SetField stages value under name, overriding whatever the original
// object (or a prior SetField call) held for that field.
func (b *ObjectBuilder) SetField(name string, value any) error {
	fieldID := b.mapper().FieldID(b.orig.typeID, name)
	tmp := NewWriter(b.ctx)
	if err := tmp.writeValue(reflect.ValueOf(value)); err != nil {
		return err
	}
	if _, wasOverlaid := b.overlay[fieldID]; !wasOverlaid {
		b.order = append(b.order, fieldID)
	}
	b.overlay[fieldID] = append([]byte(nil), tmp.out.b...)
	delete(b.removed, fieldID)
	return nil
}

// RemoveField stages the removal of name; it will be absent from the
// built object even if present in the original.
func (b *ObjectBuilder) RemoveField(name string) {
	fieldID := b.mapper().FieldID(b.orig.typeID, name)
	delete(b.overlay, fieldID)
	b.removed[fieldID] = true
}

// Build merges the overlay with the original object's fields (original
// order first, new fields appended in SetField call order) and encodes
// the result through a real Writer, so the output is an ordinary,
// fully valid encoded object indistinguishable from one the Writer
// produced directly.
func (b *ObjectBuilder) Build() (*BinaryObject, error) {
	r := NewReader(b.ctx, b.bytes)
	_, _, entries, err := r.objectEntries(b.start)
	if err != nil {
		return nil, err
	}

	type fieldValue struct {
		fieldID int32
		encoded []byte
	}
	var fields []fieldValue
	seen := make(map[int32]bool)

	for _, e := range entries {
		if b.removed[e.fieldID] {
			continue
		}
		if ov, ok := b.overlay[e.fieldID]; ok {
			fields = append(fields, fieldValue{e.fieldID, ov})
		} else {
			v, err := r.readValueAt(b.start + e.offset)
			if err != nil {
				return nil, err
			}
			tmp := NewWriter(b.ctx)
			if err := tmp.writeValue(reflect.ValueOf(v)); err != nil {
				return nil, err
			}
			fields = append(fields, fieldValue{e.fieldID, append([]byte(nil), tmp.out.b...)})
		}
		seen[e.fieldID] = true
	}
	for _, fieldID := range b.order {
		if seen[fieldID] || b.removed[fieldID] {
			continue
		}
		fields = append(fields, fieldValue{fieldID, b.overlay[fieldID]})
	}

	w := NewWriter(b.ctx)
	headerOffset := w.out.len()
	w.out.writeByte(headerTag)
	w.out.writeByte(protoVersion)
	flagsOff := w.out.writeUint16(0)
	w.out.writeInt32(b.orig.typeID)
	w.out.writeInt32(b.orig.hashCode)
	totalLenOff := w.out.len()
	w.out.writeInt32(0)
	schemaIDOff := w.out.len()
	w.out.writeInt32(0)
	schemaOrRawOff := w.out.len()
	w.out.writeInt32(0)

	var entriesOut []schemaEntry
	for _, f := range fields {
		entriesOut = append(entriesOut, schemaEntry{fieldID: f.fieldID, offset: w.out.len() - headerOffset})
		w.out.writeRaw(f.encoded)
	}

	fl := flagUserType
	var schema Schema
	if len(entriesOut) > 0 {
		fieldIDs := make([]int32, len(entriesOut))
		for i, e := range entriesOut {
			fieldIDs[i] = e.fieldID
		}
		schema = NewSchema(b.orig.typeID, fieldIDs)
		fl |= flagHasSchema
		if b.ctx.compactFooter {
			fl |= flagCompactFooter
		}
		footerStart := w.out.len()
		maxOffset := 0
		for _, e := range entriesOut {
			if e.offset > maxOffset {
				maxOffset = e.offset
			}
		}
		switch {
		case maxOffset < 256:
			fl |= flagOffset1
			for _, e := range entriesOut {
				if !b.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeByte(byte(e.offset))
			}
		case maxOffset < 65536:
			fl |= flagOffset2
			for _, e := range entriesOut {
				if !b.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeUint16(uint16(e.offset))
			}
		default:
			for _, e := range entriesOut {
				if !b.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeUint32(uint32(e.offset))
			}
		}
		w.out.patchInt32At(schemaOrRawOff, int32(footerStart-headerOffset))
	}

	w.out.patchUint16At(flagsOff, uint16(fl))
	w.out.patchInt32At(totalLenOff, int32(w.out.len()-headerOffset))
	w.out.patchInt32At(schemaIDOff, schema.ID())

	if len(entriesOut) > 0 {
		w.ctx.notifySchemaWritten(b.desc, schema)
	}

	return NewBinaryObject(b.ctx, w.out.b, 0, true), nil
}
