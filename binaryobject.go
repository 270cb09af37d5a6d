package ignite

// BinaryObject is a lazy view over an encoded byte range: it exposes
// typeId/schemaId/hashCode and field access without deserializing the
// rest of the object, and can materialize a full value on demand.
// Grounded on the teacher's encvalue.go header-view pattern
// (reserveValueHeader/putValueHeader back-patching, value.decode).
//
// Invariant: detached() <=> start == 0 && len(bytes) == totalLength.
type BinaryObject struct {
	ctx           *Context
	bytes         []byte
	start         int
	detachAllowed bool
	detached      bool
	cached        any
	haveCached    bool
}

// NewBinaryObject wraps bytes[start:] as a view; detachAllowed governs
// whether Detach() is permitted to copy out a private range.
func NewBinaryObject(ctx *Context, bytes []byte, start int, detachAllowed bool) *BinaryObject {
	return &BinaryObject{ctx: ctx, bytes: bytes, start: start, detachAllowed: detachAllowed}
}

func (o *BinaryObject) reader() *Reader { return NewReader(o.ctx, o.bytes) }

func (o *BinaryObject) header() (header, error) {
	return o.reader().parseHeader(o.start)
}

func (o *BinaryObject) TypeID() (int32, error) {
	h, err := o.header()
	return h.typeID, err
}

func (o *BinaryObject) SchemaID() (int32, error) {
	h, err := o.header()
	return h.schemaID, err
}

func (o *BinaryObject) HashCode() (int32, error) {
	h, err := o.header()
	return h.hashCode, err
}

func (o *BinaryObject) TotalLength() (int32, error) {
	h, err := o.header()
	return h.totalLength, err
}

// Field resolves a field by name without materializing the rest of the
// object.
func (o *BinaryObject) Field(name string) (any, error) {
	return o.reader().fieldAt(o.start, name)
}

// FieldByID is the fieldId-keyed counterpart of Field.
func (o *BinaryObject) FieldByID(fieldID int32) (any, error) {
	return o.reader().fieldByIDAt(o.start, fieldID)
}

// Deserialize fully materializes the value. If the descriptor has
// KeepDeserialized set, the result is cached on the view, per spec
// §4.6.
func (o *BinaryObject) Deserialize() (any, error) {
	if o.haveCached {
		return o.cached, nil
	}
	v, err := o.reader().readValueAt(o.start)
	if err != nil {
		return nil, err
	}
	if desc, err := o.descriptor(); err == nil && desc != nil && desc.keepDeserialized {
		o.cached = v
		o.haveCached = true
	}
	return v, nil
}

func (o *BinaryObject) descriptor() (*TypeDescriptor, error) {
	h, err := o.header()
	if err != nil {
		return nil, err
	}
	d, _, err := o.reader().resolveDescriptor(h)
	return d, err
}

// Detached reports whether this view's buffer holds exactly its own
// bytes: start == 0 and len(bytes) == totalLength.
func (o *BinaryObject) Detached() bool {
	if o.detached {
		return true
	}
	if o.start != 0 {
		return false
	}
	h, err := o.header()
	return err == nil && int(h.totalLength) == len(o.bytes)
}

// Detach copies [start, start+totalLength) into a fresh buffer if
// detachAllowed and not already detached; otherwise returns the
// receiver unchanged. Idempotent, per spec §8.
func (o *BinaryObject) Detach() (*BinaryObject, error) {
	if o.Detached() || !o.detachAllowed {
		return o, nil
	}
	h, err := o.header()
	if err != nil {
		return nil, err
	}
	end := o.start + int(h.totalLength)
	if end > len(o.bytes) {
		return nil, corruptFrame(o.bytes, o.start, nil, "totalLength overruns buffer")
	}
	owned := append([]byte(nil), o.bytes[o.start:end]...)
	return &BinaryObject{ctx: o.ctx, bytes: owned, start: 0, detachAllowed: true, detached: true}, nil
}

// ToBuilder returns an ObjectBuilder seeded with this object's current
// fields, for producing a modified copy without full deserialization.
// Supplemented feature #6, grounded on kvo's MutableRecord/MutableMap
// copy-on-write delta-over-immutable pattern.
func (o *BinaryObject) ToBuilder() (*ObjectBuilder, error) {
	h, err := o.header()
	if err != nil {
		return nil, err
	}
	desc, _, err := o.reader().resolveDescriptor(h)
	if err != nil {
		return nil, err
	}
	return newObjectBuilder(o.ctx, desc, h, o.bytes, o.start), nil
}
