package ignite

import (
	"reflect"

	"github.com/google/uuid"
)

// RawReader is handed to an ExternalSerializer.ReadExternal; it exposes
// the raw tail bytes of an EXTERNAL-mode object with no schema-footer
// bookkeeping, symmetric to RawWriter.
type RawReader struct {
	d *dec
}

func (r *RawReader) ReadByte() (byte, error) { return r.d.readByte() }
func (r *RawReader) Read(p []byte) (int, error) {
	b, err := r.d.readRaw(len(p))
	if err != nil {
		return 0, err
	}
	copy(p, b)
	return len(b), nil
}
func (r *RawReader) Remaining() int { return r.d.remaining() }

// objectScope is the reader-side counterpart of writer.go's
// schemaRecorder: it lets a CustomSerializer.ReadBinary call back into
// Reader.ReadNamedValue for the object currently being decoded.
type objectScope struct {
	headerOffset int
	entries      []schemaEntry
	mapper       IdMapper
	typeID       int32
}

// Reader decodes bytes into values, either materializing a full value
// (ReadRoot) or resolving a single field without touching the rest of
// the object (Field/FieldByID). Not safe for concurrent use (spec §5).
type Reader struct {
	ctx     *Context
	data    []byte
	handles *readerHandles
	stack   []*objectScope
}

func NewReader(ctx *Context, data []byte) *Reader {
	return &Reader{ctx: ctx, data: data, handles: newReaderHandles()}
}

func (r *Reader) curScope() *objectScope {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// ReadNamedValue is the named-field counterpart of Writer.WriteNamedValue,
// used by a CustomSerializer's ReadBinary. A missing field (the object
// was written by an older schema) yields (nil, nil), not an error.
func (r *Reader) ReadNamedValue(name string) (any, error) {
	s := r.curScope()
	if s == nil {
		return nil, unsupportedValue("ReadNamedValue called outside an object read")
	}
	fieldID := s.mapper.FieldID(s.typeID, name)
	for _, e := range s.entries {
		if e.fieldID == fieldID {
			return r.readValueAt(s.headerOffset + e.offset)
		}
	}
	return nil, nil
}

// ReadRoot fully materializes the value starting at byte 0.
func (r *Reader) ReadRoot() (any, error) {
	return r.readValueAt(0)
}

// Field resolves a single field of the root object by name, without
// materializing the rest of the object, per spec §4.5.
func (r *Reader) Field(name string) (any, error) {
	return r.fieldAt(0, name)
}

// FieldByID is the fieldId-keyed counterpart of Field.
func (r *Reader) FieldByID(fieldID int32) (any, error) {
	return r.fieldByIDAt(0, fieldID)
}

// FieldByOrder resolves a field by its position in the schema's
// fieldId sequence, used by schema-driven readers (spec §4.5).
func (r *Reader) FieldByOrder(i int) (any, error) {
	return r.fieldByOrderAt(0, i)
}

func (r *Reader) objectEntries(headerOffset int) (header, *TypeDescriptor, []schemaEntry, error) {
	hdr, err := r.parseHeader(headerOffset)
	if err != nil {
		return header{}, nil, nil, err
	}
	desc, _, err := r.resolveDescriptor(hdr)
	if err != nil {
		return header{}, nil, nil, err
	}
	entries, err := r.parseFooterEntries(hdr, desc)
	if err != nil {
		return header{}, nil, nil, err
	}
	return hdr, desc, entries, nil
}

func (r *Reader) fieldAt(headerOffset int, name string) (any, error) {
	hdr, desc, entries, err := r.objectEntries(headerOffset)
	if err != nil {
		return nil, err
	}
	mapper := desc.idMapper
	if mapper == nil {
		mapper = r.ctx.idMapper
	}
	fieldID := mapper.FieldID(hdr.typeID, name)
	for _, e := range entries {
		if e.fieldID == fieldID {
			return r.readValueAt(headerOffset + e.offset)
		}
	}
	return nil, nil
}

func (r *Reader) fieldByIDAt(headerOffset int, fieldID int32) (any, error) {
	_, _, entries, err := r.objectEntries(headerOffset)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.fieldID == fieldID {
			return r.readValueAt(headerOffset + e.offset)
		}
	}
	return nil, nil
}

func (r *Reader) fieldByOrderAt(headerOffset int, i int) (any, error) {
	_, _, entries, err := r.objectEntries(headerOffset)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(entries) {
		return nil, unsupportedValue("field order %d out of range (%d fields)", i, len(entries))
	}
	return r.readValueAt(headerOffset + entries[i].offset)
}

// header is the decoded fixed 24-byte header of a user-type object.
type header struct {
	headerOffset      int
	typeID            int32
	hashCode          int32
	totalLength       int32
	schemaID          int32
	schemaOrRawOffset int32
	flags             flags
	fieldsStart       int // offset right after header + optional unregistered-name string
	unregisteredName  string
}

func (r *Reader) parseHeader(headerOffset int) (header, error) {
	d := newDec(r.data)
	d.seek(headerOffset)
	tag, err := d.readByte()
	if err != nil {
		return header{}, err
	}
	if tag != headerTag {
		return header{}, corruptFrame(r.data, headerOffset, nil, "expected header tag 0x%x, got 0x%x", headerTag, tag)
	}
	if _, err := d.readByte(); err != nil { // version
		return header{}, err
	}
	rawFlags, err := d.readUint16()
	if err != nil {
		return header{}, err
	}
	typeID, err := d.readInt32()
	if err != nil {
		return header{}, err
	}
	hashCode, err := d.readInt32()
	if err != nil {
		return header{}, err
	}
	totalLength, err := d.readInt32()
	if err != nil {
		return header{}, err
	}
	schemaID, err := d.readInt32()
	if err != nil {
		return header{}, err
	}
	schemaOrRawOffset, err := d.readInt32()
	if err != nil {
		return header{}, err
	}
	if headerOffset+int(totalLength) > len(r.data) || totalLength < headerSize {
		return header{}, corruptFrame(r.data, headerOffset, nil, "totalLength %d overruns buffer of %d bytes available at offset %d", totalLength, len(r.data)-headerOffset, headerOffset)
	}
	h := header{
		headerOffset:      headerOffset,
		typeID:            typeID,
		hashCode:          hashCode,
		totalLength:       totalLength,
		schemaID:          schemaID,
		schemaOrRawOffset: schemaOrRawOffset,
		flags:             flags(rawFlags),
		fieldsStart:       d.off,
	}
	if typeID == unregisteredTypeID {
		name, err := readStringAt(d)
		if err != nil {
			return header{}, err
		}
		h.unregisteredName = name
		h.fieldsStart = d.off
	}
	return h, nil
}

func readStringAt(d *dec) (string, error) {
	tag, err := d.readByte()
	if err != nil {
		return "", err
	}
	if tag != tagString {
		return "", corruptFrame(d.orig, d.off-1, nil, "expected STRING tag, got 0x%x", tag)
	}
	n, err := d.readInt32()
	if err != nil {
		return "", err
	}
	b, err := d.readRaw(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) resolveDescriptor(h header) (*TypeDescriptor, int32, error) {
	if h.typeID == unregisteredTypeID {
		desc, ok := r.ctx.DescriptorByTypeName(h.unregisteredName)
		if !ok {
			return nil, unregisteredTypeID, unknownType(unregisteredTypeID)
		}
		return desc, unregisteredTypeID, nil
	}
	desc, ok := r.ctx.DescriptorByTypeID(h.typeID)
	if !ok {
		return nil, h.typeID, unknownType(h.typeID)
	}
	return desc, h.typeID, nil
}

func offsetWidthBytes(f flags) int {
	switch {
	case f.has(flagOffset1):
		return 1
	case f.has(flagOffset2):
		return 2
	default:
		return 4
	}
}

// parseFooterEntries reads the (fieldId?, offset) footer, resolving
// fieldIds from the SchemaRegistry under COMPACT_FOOTER (spec §4.5
// step 2) or reading them inline otherwise (step 3).
func (r *Reader) parseFooterEntries(h header, desc *TypeDescriptor) ([]schemaEntry, error) {
	if !h.flags.has(flagHasSchema) {
		return nil, nil
	}
	headerOffset := h.headerOffset
	footerStart := headerOffset + int(h.schemaOrRawOffset)
	entryWidth := offsetWidthBytes(h.flags)

	if h.flags.has(flagCompactFooter) {
		schema, ok := r.ctx.registry.Lookup(h.typeID, h.schemaID)
		if !ok {
			return nil, unknownSchema(h.typeID, h.schemaID)
		}
		d := newDec(r.data)
		d.seek(footerStart)
		entries := make([]schemaEntry, len(schema.FieldIDs))
		for i, fid := range schema.FieldIDs {
			off, err := d.readOffsetWidth(h.flags)
			if err != nil {
				return nil, err
			}
			entries[i] = schemaEntry{fieldID: fid, offset: off}
		}
		return entries, nil
	}

	footerEnd := headerOffset + int(h.totalLength)
	entrySize := 4 + entryWidth
	if entrySize <= 0 || (footerEnd-footerStart)%entrySize != 0 {
		return nil, corruptFrame(r.data, footerStart, nil, "malformed footer length")
	}
	count := (footerEnd - footerStart) / entrySize
	d := newDec(r.data)
	d.seek(footerStart)
	entries := make([]schemaEntry, count)
	for i := 0; i < count; i++ {
		fid, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		off, err := d.readOffsetWidth(h.flags)
		if err != nil {
			return nil, err
		}
		entries[i] = schemaEntry{fieldID: fid, offset: off}
	}
	return entries, nil
}

// readValueAt seeks to off and decodes the single value found there.
func (r *Reader) readValueAt(off int) (any, error) {
	d := newDec(r.data)
	d.seek(off)
	return r.readValue(d)
}

func (r *Reader) readValue(d *dec) (any, error) {
	tagOff := d.off
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return nil, nil
	case tagBoolean:
		b, err := d.readByte()
		return b != 0, err
	case tagByte:
		b, err := d.readByte()
		return int8(b), err
	case tagShort:
		v, err := d.readUint16()
		return int16(v), err
	case tagInt:
		return d.readInt32()
	case tagLong:
		return d.readInt64()
	case tagFloat:
		return d.readFloat32()
	case tagDouble:
		return d.readFloat64()
	case tagString:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		b, err := d.readRaw(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagByteArr:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		b, err := d.readRaw(int(n))
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case tagObjectArr:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			v, err := r.readValue(d)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case tagMap:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		out := make(map[any]any, n)
		for i := int32(0); i < n; i++ {
			k, err := r.readValue(d)
			if err != nil {
				return nil, err
			}
			v, err := r.readValue(d)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case tagDecimal:
		return readDecimal(d)
	case tagTimestamp:
		return readTimestamp(d)
	case tagDate:
		return readDate(d)
	case tagUUID:
		v, err := readUUID(d)
		return uuid.UUID(v), err
	case tagHandle:
		backOff, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		absHeader := tagOff + int(backOff)
		v, ok := r.handles.get(absHeader)
		if !ok {
			return nil, corruptFrame(r.data, tagOff, nil, "handle references offset %d which is not yet decoded", absHeader)
		}
		return v, nil
	case tagObject:
		v, err := r.decodeUserTypeAt(tagOff)
		if err != nil {
			return nil, err
		}
		// decodeUserTypeAt works through its own absolute-offset decoders
		// and never advances d; seek past the object's full span so a
		// caller reading a sequence of values from d (tagObjectArr,
		// tagMap) lands on the next element instead of inside this
		// object's header.
		h, err := r.parseHeader(tagOff)
		if err != nil {
			return nil, err
		}
		d.seek(tagOff + int(h.totalLength))
		return v, nil
	default:
		return nil, corruptFrame(r.data, tagOff, nil, "unknown tag 0x%x", tag)
	}
}

// decodeUserTypeAt implements spec §4.5's full-object decode: install a
// placeholder in the handle table before decoding fields so cycles
// resolve to the same Go value, then dispatch by mode.
func (r *Reader) decodeUserTypeAt(headerOffset int) (any, error) {
	h, err := r.parseHeader(headerOffset)
	if err != nil {
		return nil, err
	}
	desc, typeID, err := r.resolveDescriptor(h)
	if err != nil {
		return nil, err
	}
	if desc.mode == ModeExcluded {
		return nil, nil
	}

	entries, err := r.parseFooterEntries(h, desc)
	if err != nil {
		return nil, err
	}

	mapper := desc.idMapper
	if mapper == nil {
		mapper = r.ctx.idMapper
	}
	scope := &objectScope{headerOffset: headerOffset, entries: entries, mapper: mapper, typeID: typeID}

	var ptrVal reflect.Value
	if desc.mode == ModeReflected && desc.goType != nil {
		ptrVal = reflect.New(desc.goType)
		r.handles.install(headerOffset, ptrVal.Interface())
	}

	r.stack = append(r.stack, scope)
	var result any
	var decodeErr error
	switch desc.mode {
	case ModeReflected:
		for _, e := range entries {
			acc, ok := desc.fieldAccessorByID(e.fieldID)
			if !ok {
				continue // unknown field: forward-compatible skip
			}
			v, err := r.readValueAt(headerOffset + e.offset)
			if err != nil {
				decodeErr = err
				break
			}
			if v == nil {
				continue
			}
			setField(acc, ptrVal, v)
		}
		result = ptrVal.Interface()
	case ModeCustom:
		result, decodeErr = desc.custom.ReadBinary(r)
	case ModeExternal:
		rawOff := headerOffset + int(h.schemaOrRawOffset)
		rawEnd := headerOffset + int(h.totalLength)
		if rawOff < 0 || rawEnd > len(r.data) || rawOff > rawEnd {
			decodeErr = corruptFrame(r.data, headerOffset, nil, "invalid raw tail bounds")
		} else {
			rr := RawReader{d: newDec(r.data[rawOff:rawEnd])}
			result, decodeErr = desc.external.ReadExternal(&rr)
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	if decodeErr != nil {
		return nil, decodeErr
	}

	if desc.readResolve != nil {
		resolved := desc.readResolve(result)
		result = resolved
	}
	r.handles.install(headerOffset, result)
	return result, nil
}

// setField assigns v into acc's target field on ptrVal, converting
// between Go types with identical underlying kinds (e.g. a decoded
// int32 into a named `type Foo int32` field) where a direct Set would
// panic.
func setField(acc fieldAccessor, ptrVal reflect.Value, v any) {
	fv := reflect.ValueOf(v)
	target := acc.typ
	if fv.Type() != target {
		if fv.Type().Kind() == reflect.Ptr && fv.Type().Elem() == target {
			// decodeUserTypeAt always hands back a *T for ModeReflected
			// objects (it needs the pointer for the handle table), even
			// when the field it's being assigned into is a plain T.
			fv = fv.Elem()
		} else if fv.Type().ConvertibleTo(target) {
			fv = fv.Convert(target)
		} else {
			return
		}
	}
	acc.set(ptrVal, fv)
}
