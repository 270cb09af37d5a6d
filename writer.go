package ignite

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// schemaEntry is one (fieldId, offset) pair collected while writing an
// object's fields; offset is relative to the object's header start.
type schemaEntry struct {
	fieldID int32
	offset  int
}

// schemaRecorder accumulates the (fieldId, offset) pairs for one
// in-progress object, per spec §4.4's "stack of per-object schema
// recorders". Pooled via pools.go.
type schemaRecorder struct {
	headerOffset int
	typeID       int32
	mapper       IdMapper
	entries      []schemaEntry
}

// RawWriter is handed to an ExternalSerializer; it appends bytes
// verbatim to the enclosing Writer's output with no schema-footer
// bookkeeping, per spec §4.4 step 3 (EXTERNAL mode).
type RawWriter struct {
	w *Writer
}

func (r RawWriter) WriteByte(v byte) error   { r.w.out.writeByte(v); return nil }
func (r RawWriter) Write(p []byte) (int, error) {
	r.w.out.writeRaw(p)
	return len(p), nil
}

// Writer encodes one value tree into bytes. It is not safe for
// concurrent use (spec §5): callers should use one Writer per
// goroutine/request, or reset it between uses via NewWriter.
type Writer struct {
	ctx     *Context
	out     *buf
	handles *writerHandles
	stack   []*schemaRecorder
}

func NewWriter(ctx *Context) *Writer {
	return &Writer{ctx: ctx, out: getWriterBuf(), handles: newWriterHandles()}
}

// Bytes returns the encoded output accumulated so far.
func (w *Writer) Bytes() []byte { return w.out.b }

// Release returns the writer's scratch buffer to the shared pool.
// Callers that keep the result of Bytes()/Write() beyond the Writer's
// lifetime must copy it first, since Release makes the backing array
// available for reuse.
func (w *Writer) Release() {
	releaseWriterBuf(w.out)
}

// Reset clears the writer for reuse with a fresh root value, dropping
// the handle table (which per spec §3.3 is scoped to one top-level
// write) and any accumulated bytes.
func (w *Writer) Reset() {
	w.out.b = w.out.b[:0]
	w.handles = newWriterHandles()
	w.stack = w.stack[:0]
}

// Write encodes value as the root of a fresh output buffer.
func (w *Writer) Write(value any) error {
	w.Reset()
	return w.writeValue(reflect.ValueOf(value))
}

func (w *Writer) curRecorder() *schemaRecorder {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

// WriteNamedValue is the named-field API a CustomSerializer calls back
// into; each call records one (fieldId, offset) pair against the
// object currently being written, per spec §4.4 step 3 (CUSTOM mode).
func (w *Writer) WriteNamedValue(name string, value any) error {
	rec := w.curRecorder()
	if rec == nil {
		return unsupportedValue("WriteNamedValue called outside an object write")
	}
	fieldID := rec.mapper.FieldID(rec.typeID, name)
	rec.entries = append(rec.entries, schemaEntry{fieldID: fieldID, offset: w.out.len() - rec.headerOffset})
	return w.writeValue(reflect.ValueOf(value))
}

var (
	decimalType   = reflect.TypeOf(Decimal{})
	timestampType = reflect.TypeOf(Timestamp{})
	dateType      = reflect.TypeOf(Date(0))
	uuidType      = reflect.TypeOf(uuid.UUID{})
	timeType      = reflect.TypeOf(time.Time{})
)

// writeValue dispatches on value's Go type, handling handle-table
// sharing/cycle detection for pointer-like kinds before encoding, per
// spec §4.4 step 1.
func (w *Writer) writeValue(v reflect.Value) error {
	if !v.IsValid() {
		w.out.writeByte(tagNull)
		return nil
	}

	if ptr, ok := identityOf(v); ok {
		if headerOff, seen := w.handles.lookup(ptr); seen {
			return w.writeHandle(headerOff)
		}
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			w.out.writeByte(tagNull)
			return nil
		}
		return w.writeValue(v.Elem())
	case reflect.Bool:
		w.out.writeByte(tagBoolean)
		if v.Bool() {
			w.out.writeByte(1)
		} else {
			w.out.writeByte(0)
		}
		return nil
	case reflect.Int8:
		w.out.writeByte(tagByte)
		w.out.writeByte(byte(v.Int()))
		return nil
	case reflect.Uint8:
		w.out.writeByte(tagByte)
		w.out.writeByte(byte(v.Uint()))
		return nil
	case reflect.Int16:
		w.out.writeByte(tagShort)
		w.out.writeUint16(uint16(v.Int()))
		return nil
	case reflect.Uint16:
		w.out.writeByte(tagShort)
		w.out.writeUint16(uint16(v.Uint()))
		return nil
	case reflect.Int32, reflect.Int:
		w.out.writeByte(tagInt)
		w.out.writeInt32(int32(v.Int()))
		return nil
	case reflect.Uint32:
		w.out.writeByte(tagInt)
		w.out.writeInt32(int32(v.Uint()))
		return nil
	case reflect.Int64:
		w.out.writeByte(tagLong)
		w.out.writeInt64(v.Int())
		return nil
	case reflect.Uint64:
		w.out.writeByte(tagLong)
		w.out.writeInt64(int64(v.Uint()))
		return nil
	case reflect.Float32:
		w.out.writeByte(tagFloat)
		w.out.writeFloat32(float32(v.Float()))
		return nil
	case reflect.Float64:
		w.out.writeByte(tagDouble)
		w.out.writeFloat64(v.Float())
		return nil
	case reflect.String:
		w.writeStringTagged(v.String())
		return nil
	case reflect.Slice, reflect.Array:
		return w.writeSliceOrArray(v)
	case reflect.Map:
		return w.writeMap(v)
	case reflect.Struct:
		return w.writeStruct(v)
	default:
		return unsupportedValue("no wire representation for Go kind %v", v.Kind())
	}
}

func (w *Writer) writeStringTagged(s string) {
	w.out.writeByte(tagString)
	w.out.writeInt32(int32(len(s)))
	w.out.writeRaw([]byte(s))
}

func (w *Writer) writeHandle(headerOffset int) error {
	// negative offset relative to the HANDLE tag's own position, per
	// spec §6.2.
	handlePos := w.out.len()
	w.out.writeByte(tagHandle)
	w.out.writeInt32(int32(headerOffset - handlePos))
	return nil
}

func (w *Writer) writeSliceOrArray(v reflect.Value) error {
	if v.Kind() == reflect.Slice && v.IsNil() {
		w.out.writeByte(tagNull)
		return nil
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		w.out.writeByte(tagByteArr)
		n := v.Len()
		w.out.writeInt32(int32(n))
		if v.Kind() == reflect.Slice {
			w.out.writeRaw(v.Bytes())
		} else {
			for i := 0; i < n; i++ {
				w.out.writeByte(byte(v.Index(i).Uint()))
			}
		}
		return nil
	}
	w.out.writeByte(tagObjectArr)
	n := v.Len()
	w.out.writeInt32(int32(n))
	for i := 0; i < n; i++ {
		if err := w.writeValue(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeMap(v reflect.Value) error {
	if v.IsNil() {
		w.out.writeByte(tagNull)
		return nil
	}
	w.out.writeByte(tagMap)
	keys := v.MapKeys()
	w.out.writeInt32(int32(len(keys)))
	for _, k := range keys {
		if err := w.writeValue(k); err != nil {
			return err
		}
		if err := w.writeValue(v.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeStruct(v reflect.Value) error {
	switch v.Type() {
	case decimalType:
		w.out.writeByte(tagDecimal)
		writeDecimal(w.out, v.Interface().(Decimal))
		return nil
	case timestampType:
		w.out.writeByte(tagTimestamp)
		writeTimestamp(w.out, v.Interface().(Timestamp))
		return nil
	case dateType:
		w.out.writeByte(tagDate)
		writeDate(w.out, v.Interface().(Date))
		return nil
	case uuidType:
		w.out.writeByte(tagUUID)
		writeUUID(w.out, v.Interface().(uuid.UUID))
		return nil
	case timeType:
		w.out.writeByte(tagTimestamp)
		writeTimestamp(w.out, TimestampFromTime(v.Interface().(time.Time)))
		return nil
	}

	desc, ok := w.ctx.descriptorByGoType(v.Type())
	if !ok {
		return w.writeUnregistered(v)
	}
	return w.writeUserType(v, desc, desc.typeID, desc.typeName, false)
}

// writeUnregistered handles supplemented feature #4: a struct type the
// Context has never Register()-ed is still encodable, using a fresh
// reflection-built descriptor, a sentinel typeId of 0, and the fully
// qualified Go type name appended as a STRING before the field region.
func (w *Writer) writeUnregistered(v reflect.Value) error {
	t := v.Type()
	fqName := t.PkgPath() + "." + t.Name()
	accessors, err := buildFieldAccessors(t, w.ctx.idMapper, unregisteredTypeID)
	if err != nil {
		return err
	}
	desc := &TypeDescriptor{
		typeID:    unregisteredTypeID,
		typeName:  fqName,
		mode:      ModeReflected,
		goType:    t,
		idMapper:  w.ctx.idMapper,
		accessors: accessors,
	}
	return w.writeUserType(v, desc, unregisteredTypeID, fqName, true)
}

// writeUserType implements the spec §4.4 write algorithm for a
// user-type value: reserve the header, dispatch by mode, and
// back-patch once the footer (or raw tail) has been emitted.
func (w *Writer) writeUserType(v reflect.Value, desc *TypeDescriptor, typeID int32, typeName string, unregisteredName bool) error {
	if desc.mode == ModeExcluded {
		w.out.writeByte(tagNull)
		return nil
	}

	var identityPtr uintptr
	var hasIdentity bool
	if v.Kind() == reflect.Struct && v.CanAddr() {
		if ptr, ok := identityOf(v.Addr()); ok {
			if headerOff, seen := w.handles.lookup(ptr); seen {
				return w.writeHandle(headerOff)
			}
			identityPtr, hasIdentity = ptr, true
		}
	}

	value := v.Interface()
	if desc.writeReplace != nil {
		value = desc.writeReplace(value)
		v = reflect.ValueOf(value)
	}

	headerOffset := w.out.len()
	// Record the handle before encoding fields, not after: a
	// self-referencing field (v.Self = v) must see this object as
	// already-seen while its own body is still being written.
	if hasIdentity {
		w.handles.record(identityPtr, headerOffset)
	}
	w.out.writeByte(headerTag)
	w.out.writeByte(protoVersion)
	flagsOff := w.out.writeUint16(0)
	w.out.writeInt32(typeID)
	w.out.writeInt32(hashCodeFor(value))
	totalLenOff := w.out.len()
	w.out.writeInt32(0)
	schemaIDOff := w.out.len()
	w.out.writeInt32(0)
	schemaOrRawOff := w.out.len()
	w.out.writeInt32(0)

	if unregisteredName {
		w.writeStringTagged(typeName)
	}

	rec := getSchemaRecorder()
	rec.headerOffset = headerOffset
	rec.typeID = typeID
	rec.mapper = desc.idMapper
	if rec.mapper == nil {
		rec.mapper = w.ctx.idMapper
	}
	w.stack = append(w.stack, rec)

	var writeErr error
	isRaw := false
	rawOffset := 0
	switch desc.mode {
	case ModeReflected:
		for _, a := range desc.accessors {
			rec.entries = append(rec.entries, schemaEntry{fieldID: a.fieldID, offset: w.out.len() - headerOffset})
			fv := a.get(v)
			if !fv.IsValid() {
				w.out.writeByte(tagNull)
				continue
			}
			if err := w.writeValue(fv); err != nil {
				writeErr = err
				break
			}
		}
	case ModeCustom:
		if err := desc.custom.WriteBinary(value, w); err != nil {
			writeErr = userHookFailed(typeID, err)
		}
	case ModeExternal:
		isRaw = true
		rawOffset = w.out.len() - headerOffset
		rw := RawWriter{w: w}
		if err := desc.external.WriteExternal(value, &rw); err != nil {
			writeErr = userHookFailed(typeID, err)
		}
	}

	w.stack = w.stack[:len(w.stack)-1]

	if writeErr != nil {
		releaseSchemaRecorder(rec)
		return writeErr
	}

	var schema Schema
	var f flags = flagUserType

	if isRaw {
		f |= flagHasRaw
		w.out.patchInt32At(schemaOrRawOff, int32(rawOffset))
	} else if len(rec.entries) > 0 {
		fieldIDs := make([]int32, len(rec.entries))
		for i, e := range rec.entries {
			fieldIDs[i] = e.fieldID
		}
		schema = NewSchema(typeID, fieldIDs)
		f |= flagHasSchema
		if w.ctx.compactFooter {
			f |= flagCompactFooter
		}
		footerStart := w.out.len()
		maxOffset := 0
		for _, e := range rec.entries {
			if e.offset > maxOffset {
				maxOffset = e.offset
			}
		}
		switch {
		case maxOffset < 256:
			f |= flagOffset1
			for _, e := range rec.entries {
				if !w.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeByte(byte(e.offset))
			}
		case maxOffset < 65536:
			f |= flagOffset2
			for _, e := range rec.entries {
				if !w.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeUint16(uint16(e.offset))
			}
		default:
			for _, e := range rec.entries {
				if !w.ctx.compactFooter {
					w.out.writeInt32(e.fieldID)
				}
				w.out.writeUint32(uint32(e.offset))
			}
		}
		w.out.patchInt32At(schemaOrRawOff, int32(footerStart-headerOffset))
	}

	w.out.patchUint16At(flagsOff, uint16(f))
	w.out.patchInt32At(totalLenOff, int32(w.out.len()-headerOffset))
	w.out.patchInt32At(schemaIDOff, schema.ID())

	notify := !isRaw && len(rec.entries) > 0
	releaseSchemaRecorder(rec)

	if notify {
		w.ctx.notifySchemaWritten(desc, schema)
	}
	return nil
}

// hashCodeFor returns value's semantic hash: value.BinaryHashCode() if
// it implements HashCoder, else 0 (the spec leaves this to the caller
// or key-derivation path; Context.HashKeyBytes covers the latter).
type HashCoder interface {
	BinaryHashCode() int32
}

func hashCodeFor(value any) int32 {
	if hc, ok := value.(HashCoder); ok {
		return hc.BinaryHashCode()
	}
	return 0
}
