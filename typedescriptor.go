package ignite

import "reflect"

// Mode selects how a TypeDescriptor encodes and decodes its values.
type Mode int

const (
	// ModeReflected walks the Go struct's fields by reflection and
	// builds the stable schema from the ordered fieldIds.
	ModeReflected Mode = iota
	// ModeCustom delegates to a user-supplied CustomSerializer that
	// calls back into the Writer's named-field API.
	ModeCustom
	// ModeExternal delegates entirely to an ExternalSerializer; the
	// writer switches into raw mode and no schema footer is emitted.
	ModeExternal
	// ModeExcluded never encodes; values of this type are always
	// written (and read back) as NULL.
	ModeExcluded
	// ModePredefined covers the built-in primitive/array/container
	// tags; there is no user-registered TypeDescriptor for them.
	ModePredefined
)

// CustomSerializer lets a type hand-write its own field sequence while
// still benefiting from the schema footer and metadata publication;
// each WriteBinary call is expected to call back into the Writer's
// named-field API (WriteNamedValue), one call per field.
type CustomSerializer interface {
	WriteBinary(value any, w *Writer) error
	ReadBinary(r *Reader) (any, error)
}

// ExternalSerializer owns the full byte-level encoding of a type; the
// Writer appends its output verbatim as a raw tail with no schema
// footer, per spec §4.4 step 3 and supplemented feature #3.
type ExternalSerializer interface {
	WriteExternal(value any, w *RawWriter) error
	ReadExternal(r *RawReader) (any, error)
}

// TypeDescriptorOptions configures a TypeDescriptor at registration.
type TypeDescriptorOptions struct {
	TypeName           string
	GoType             reflect.Type
	Mode               Mode
	IdMapper           IdMapper // nil defaults to the Context's mapper
	AffinityKeyField   string
	CustomSerializer   CustomSerializer
	ExternalSerializer ExternalSerializer
	// MetadataEnabled requests publication of this type's field map to
	// a metadata.Coordinator. Only ModeReflected can populate the map
	// (its field names/types are known statically from the Go struct);
	// ModeCustom and ModeExternal types never publish regardless of
	// this flag, since their fields (if any) are only known at the
	// point they're written, not at registration time.
	MetadataEnabled    bool
	KeepDeserialized   bool
	Registered         bool

	// WriteReplace substitutes a value just before encoding; ReadResolve
	// substitutes it just after decoding. Supplemented feature #1.
	WriteReplace func(any) any
	ReadResolve  func(any) any
}

// TypeDescriptor is built once per user type and is immutable
// thereafter, per spec §3.4. It exposes the type's typeId, stable
// schema, field accessors, metadata map, mode, and lifecycle hooks.
type TypeDescriptor struct {
	typeID           int32
	typeName         string
	mode             Mode
	goType           reflect.Type
	affinityKeyField string
	idMapper         IdMapper
	accessors        []fieldAccessor
	stableSchema     Schema
	metadataMap      map[string]byte // field name -> primitive type tag
	metadataEnabled  bool
	custom           CustomSerializer
	external         ExternalSerializer
	keepDeserialized bool
	writeReplace     func(any) any
	readResolve      func(any) any
}

func (d *TypeDescriptor) TypeID() int32      { return d.typeID }
func (d *TypeDescriptor) TypeName() string   { return d.typeName }
func (d *TypeDescriptor) Mode() Mode         { return d.mode }
func (d *TypeDescriptor) Schema() Schema     { return d.stableSchema }
func (d *TypeDescriptor) MetadataMap() map[string]byte {
	return d.metadataMap
}

func (d *TypeDescriptor) fieldAccessorByID(fieldID int32) (fieldAccessor, bool) {
	for _, a := range d.accessors {
		if a.fieldID == fieldID {
			return a, true
		}
	}
	return fieldAccessor{}, false
}

// buildTypeDescriptor constructs the immutable descriptor. For
// ModeReflected it builds the field-accessor table and derives the
// stable schema (fields in declaration order, duplicate fieldIds
// rejected with TypeConfigError per spec §4.3).
func buildTypeDescriptor(o TypeDescriptorOptions, idMapper IdMapper) (*TypeDescriptor, error) {
	if o.TypeName == "" {
		return nil, typeConfigErrf("TypeName is required")
	}
	mapper := o.IdMapper
	if mapper == nil {
		mapper = idMapper
	}
	typeID := mapper.TypeID(o.TypeName)

	d := &TypeDescriptor{
		typeID:           typeID,
		typeName:         o.TypeName,
		mode:             o.Mode,
		goType:           o.GoType,
		affinityKeyField: o.AffinityKeyField,
		idMapper:         mapper,
		metadataEnabled:  o.MetadataEnabled,
		custom:           o.CustomSerializer,
		external:         o.ExternalSerializer,
		keepDeserialized: o.KeepDeserialized,
		writeReplace:     o.WriteReplace,
		readResolve:      o.ReadResolve,
	}

	switch o.Mode {
	case ModeReflected:
		rt := o.GoType
		for rt != nil && rt.Kind() == reflect.Ptr {
			rt = rt.Elem()
		}
		if rt == nil || rt.Kind() != reflect.Struct {
			return nil, typeConfigErrf("ModeReflected requires a struct GoType, got %v", o.GoType)
		}
		d.goType = rt
		accessors, err := buildFieldAccessors(rt, mapper, typeID)
		if err != nil {
			return nil, err
		}
		d.accessors = accessors
		fieldIDs := make([]int32, len(accessors))
		for i, a := range accessors {
			fieldIDs[i] = a.fieldID
		}
		d.stableSchema = NewSchema(typeID, fieldIDs)
		if o.MetadataEnabled {
			m := make(map[string]byte, len(accessors))
			for _, a := range accessors {
				m[a.name] = primitiveTagForGoType(a.typ)
			}
			d.metadataMap = m
		}
	case ModeCustom:
		if o.CustomSerializer == nil {
			return nil, typeConfigErrf("ModeCustom requires a CustomSerializer")
		}
		// No static field list exists for a CustomSerializer, so
		// metadataMap stays nil here even if MetadataEnabled is set:
		// this type never publishes to a metadata.Coordinator.
	case ModeExternal:
		if o.ExternalSerializer == nil {
			return nil, typeConfigErrf("ModeExternal requires an ExternalSerializer")
		}
	case ModeExcluded:
		// nothing further to validate; values always encode as NULL.
	default:
		return nil, typeConfigErrf("unsupported Mode %v for a registered TypeDescriptor", o.Mode)
	}

	return d, nil
}

// primitiveTagForGoType maps a Go field type to the primitive tag used
// to publish it in the type's metadata map (spec §6.4); it is a best
// effort classification for metadata purposes only, not used by the
// encoder itself.
func primitiveTagForGoType(t reflect.Type) byte {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		return tagByte
	case reflect.Int16, reflect.Uint16:
		return tagShort
	case reflect.Int32, reflect.Uint32, reflect.Int:
		return tagInt
	case reflect.Int64, reflect.Uint64:
		return tagLong
	case reflect.Float32:
		return tagFloat
	case reflect.Float64:
		return tagDouble
	case reflect.Bool:
		return tagBoolean
	case reflect.String:
		return tagString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return tagByteArr
		}
		return tagObjectArr
	case reflect.Struct:
		return tagObject
	default:
		return tagObject
	}
}
