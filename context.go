package ignite

import (
	"log/slog"
	"reflect"
	"sync"
)

// ContextOptions configures a Context at construction, mirroring the
// teacher's db.Options/edb.Open(path, schema, opt) pattern: a plain
// struct passed to a constructor, no config-file parsing, no env-var
// binding framework.
type ContextOptions struct {
	// IdMapper overrides the default typeId/fieldId hash. Defaults to
	// DefaultIdMapper{} when nil.
	IdMapper IdMapper
	// Logger is the Context's structured logger, returned by Logger();
	// metadata.Coordinator falls back to it for its own diagnostics. The
	// codec itself does not log. Defaults to slog.Default() when nil.
	Logger *slog.Logger
	// CompactFooter enables the COMPACT_FOOTER flag on every write
	// made through this Context, trading a larger per-write
	// SchemaRegistry dependency for a smaller wire footer.
	CompactFooter bool
}

// Context owns the IdMapper, the SchemaRegistry, and the set of known
// TypeDescriptors; it is passed explicitly into every codec call, per
// spec §9's note that there is no process-wide default Context.
type Context struct {
	idMapper       IdMapper
	logger         *slog.Logger
	compactFooter  bool
	schemaObserver SchemaObserverFunc

	registry *SchemaRegistry

	mu            sync.Mutex // serializes descriptor construction per typeId
	byTypeID      sync.Map   // int32 -> *TypeDescriptor
	byGoType      sync.Map   // reflect.Type -> *TypeDescriptor
	byTypeName    sync.Map   // string (lower-cased) -> *TypeDescriptor
}

func NewContext(o ContextOptions) *Context {
	mapper := o.IdMapper
	if mapper == nil {
		mapper = DefaultIdMapper{}
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		idMapper:      mapper,
		logger:        logger,
		compactFooter: o.CompactFooter,
		registry:      NewSchemaRegistry(),
	}
}

// SchemaObserverFunc is called after a user-type object has been fully
// written, with the schema actually observed on the wire. Set by
// metadata.Coordinator to implement the new-schema-detection path of
// spec §4.7 without Writer itself depending on the metadata package.
type SchemaObserverFunc func(desc *TypeDescriptor, schema Schema)

func (c *Context) SetSchemaObserver(f SchemaObserverFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemaObserver = f
}

func (c *Context) notifySchemaWritten(desc *TypeDescriptor, schema Schema) {
	if c.schemaObserver != nil {
		c.schemaObserver(desc, schema)
	}
}

func (c *Context) IdMapper() IdMapper         { return c.idMapper }
func (c *Context) SchemaRegistry() *SchemaRegistry { return c.registry }
func (c *Context) Logger() *slog.Logger       { return c.logger }
func (c *Context) CompactFooter() bool        { return c.compactFooter }

// Register builds a TypeDescriptor from o and publishes it under its
// typeId, its Go type (for ModeReflected/ModeCustom/ModeExternal
// lookups during Write), and its lower-cased type name (for
// unregistered-type fallback resolution during Read). Construction is
// serialized; once published a descriptor is immutable and read
// lock-free, per spec §5.
func (c *Context) Register(o TypeDescriptorOptions) (*TypeDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := buildTypeDescriptor(o, c.idMapper)
	if err != nil {
		return nil, err
	}
	if existing, ok := c.byTypeID.Load(d.typeID); ok {
		old := existing.(*TypeDescriptor)
		if old.typeName != d.typeName {
			return nil, typeConfigErrf("typeId collision: %q and %q both hash to %d", old.typeName, d.typeName, d.typeID)
		}
	}
	c.byTypeID.Store(d.typeID, d)
	if d.goType != nil {
		c.byGoType.Store(d.goType, d)
	}
	c.byTypeName.Store(lowerCaseKey(d.typeName), d)
	if d.mode == ModeReflected {
		if err := c.registry.Insert(d.stableSchema); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func lowerCaseKey(s string) string {
	return lowerCaseHashKey(s)
}

// lowerCaseHashKey avoids importing strings twice across files; kept
// tiny and local to this lookup.
func lowerCaseHashKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (c *Context) DescriptorByTypeID(typeID int32) (*TypeDescriptor, bool) {
	v, ok := c.byTypeID.Load(typeID)
	if !ok {
		return nil, false
	}
	return v.(*TypeDescriptor), true
}

func (c *Context) DescriptorByTypeName(name string) (*TypeDescriptor, bool) {
	v, ok := c.byTypeName.Load(lowerCaseKey(name))
	if !ok {
		return nil, false
	}
	return v.(*TypeDescriptor), true
}

func (c *Context) descriptorByGoType(t reflect.Type) (*TypeDescriptor, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	v, ok := c.byGoType.Load(t)
	if !ok {
		return nil, false
	}
	return v.(*TypeDescriptor), true
}
