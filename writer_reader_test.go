package ignite

import (
	"reflect"
	"testing"
)

type point struct {
	X int32
	Y int32
}

func newPointContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext(ContextOptions{})
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Point",
		GoType:   reflect.TypeOf(point{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return ctx
}

// TestPointLayout checks the layout of a small two-field struct: the
// header tag at byte 0, two INT-tagged fields in declaration order
// right after the 24-byte header, and random field access through the
// footer.
func TestPointLayout(t *testing.T) {
	ctx := newPointContext(t)
	w := NewWriter(ctx)
	if err := w.Write(&point{X: 3, Y: 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	if out[0] != headerTag {
		t.Fatalf("byte 0 = %#x, want header tag", out[0])
	}
	if len(out) < headerSize+10 {
		t.Fatalf("short frame: %d bytes", len(out))
	}

	fieldsStart := headerSize
	if out[fieldsStart] != tagInt {
		t.Fatalf("field 0 tag = %#x, want INT", out[fieldsStart])
	}
	if out[fieldsStart+5] != tagInt {
		t.Fatalf("field 1 tag = %#x, want INT", out[fieldsStart+5])
	}

	r := NewReader(ctx, out)
	x, err := r.Field("X")
	if err != nil || x != int32(3) {
		t.Fatalf("Field(X) = %v, %v, want 3, nil", x, err)
	}
	y, err := r.Field("Y")
	if err != nil || y != int32(4) {
		t.Fatalf("Field(Y) = %v, %v, want 4, nil", y, err)
	}

	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	p, ok := decoded.(*point)
	if !ok {
		t.Fatalf("decoded type = %T, want *point", decoded)
	}
	if p.X != 3 || p.Y != 4 {
		t.Fatalf("decoded = %+v, want {3 4}", p)
	}
}

// TestSharedElementHandle covers the [a, b, a] aliasing scenario: the
// third slot must be a HANDLE pointing back at the first element's
// header, not a re-encoded copy, and decoding must yield the same
// pointer in both slots.
func TestSharedElementHandle(t *testing.T) {
	ctx := newPointContext(t)
	a := &point{X: 1, Y: 1}
	b := &point{X: 2, Y: 2}
	list := []*point{a, b, a}

	w := NewWriter(ctx)
	if err := w.Write(list); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("decoded = %#v, want []any of length 3", decoded)
	}
	first, ok := got[0].(*point)
	if !ok {
		t.Fatalf("got[0] type = %T", got[0])
	}
	third, ok := got[2].(*point)
	if !ok {
		t.Fatalf("got[2] type = %T", got[2])
	}
	if first != third {
		t.Fatalf("got[0] and got[2] are distinct pointers, want identical")
	}
}

type selfNode struct {
	Name string
	Self *selfNode
}

// TestSelfCycleIdentity covers a struct whose field points back at
// itself: the decoded value's Self field must be the very same pointer
// as the decoded root, not a second equal-but-distinct copy.
func TestSelfCycleIdentity(t *testing.T) {
	ctx := NewContext(ContextOptions{})
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "SelfNode",
		GoType:   reflect.TypeOf(selfNode{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	n := &selfNode{Name: "root"}
	n.Self = n

	w := NewWriter(ctx)
	if err := w.Write(n); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	root, ok := decoded.(*selfNode)
	if !ok {
		t.Fatalf("decoded type = %T, want *selfNode", decoded)
	}
	if root.Self != root {
		t.Fatalf("root.Self != root: got a distinct copy instead of the shared pointer")
	}
}

// TestUnknownSchemaAfterClear covers spec §8 scenario 4: under
// COMPACT_FOOTER, clearing a type's registry entries makes a
// previously-decodable object unreadable with an UnknownSchema error.
func TestUnknownSchemaAfterClear(t *testing.T) {
	ctx := NewContext(ContextOptions{CompactFooter: true})
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Point",
		GoType:   reflect.TypeOf(point{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := NewWriter(ctx)
	if err := w.Write(&point{X: 1, Y: 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	ctx.SchemaRegistry().Clear(DefaultIdMapper{}.TypeID("Point"))

	r := NewReader(ctx, out)
	_, err := r.ReadRoot()
	if err == nil {
		t.Fatal("ReadRoot after Clear: want UnknownSchema error, got nil")
	}
	var ce *CodecError
	if !asCodecError(err, &ce) || ce.Kind != UnknownSchema {
		t.Fatalf("ReadRoot after Clear: err = %v, want UnknownSchema", err)
	}
}

// TestDuplicateFieldIDRejected covers spec §8 scenario 5: two distinct
// field names whose fieldIds collide must fail type registration with
// a TypeConfigError, not silently drop one field.
func TestDuplicateFieldIDRejected(t *testing.T) {
	type Colliding struct {
		FieldA int32 `ignite:"an"` // DefaultIdMapper: 3117
		FieldB int32 `ignite:"c0"` // DefaultIdMapper: 3117
	}
	ctx := NewContext(ContextOptions{})
	_, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Colliding",
		GoType:   reflect.TypeOf(Colliding{}),
		Mode:     ModeReflected,
	})
	if err == nil {
		t.Fatal("Register: want TypeConfigError, got nil")
	}
	var ce *CodecError
	if !asCodecError(err, &ce) || ce.Kind != TypeConfigError {
		t.Fatalf("Register: err = %v, want TypeConfigError", err)
	}
}

// TestTruncatedBufferCorrupt covers spec §8 scenario 6: a buffer cut
// short of its declared totalLength is rejected at header-parse time.
func TestTruncatedBufferCorrupt(t *testing.T) {
	ctx := newPointContext(t)
	w := NewWriter(ctx)
	if err := w.Write(&point{X: 5, Y: 6}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	full := append([]byte(nil), w.Bytes()...)
	w.Release()

	truncated := full[:len(full)-3]
	r := NewReader(ctx, truncated)
	_, err := r.ReadRoot()
	if err == nil {
		t.Fatal("ReadRoot on truncated buffer: want CorruptFrame, got nil")
	}
	var ce *CodecError
	if !asCodecError(err, &ce) || ce.Kind != CorruptFrame {
		t.Fatalf("ReadRoot on truncated buffer: err = %v, want CorruptFrame", err)
	}
}

func asCodecError(err error, target **CodecError) bool {
	ce, ok := err.(*CodecError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

// TestUnregisteredTypeRoundTrip covers supplemented feature #4: a
// struct never Register()-ed still encodes and decodes via the
// sentinel typeId=0 + fully qualified name fallback, as long as the
// destination Context has a descriptor registered under that name.
func TestUnregisteredTypeRoundTrip(t *testing.T) {
	type adhoc struct {
		A int32
	}
	ctx := NewContext(ContextOptions{})

	w := NewWriter(ctx)
	if err := w.Write(adhoc{A: 9}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "github.com/Nyrone/ignite.adhoc",
		GoType:   reflect.TypeOf(adhoc{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.(*adhoc)
	if !ok {
		t.Fatalf("decoded type = %T, want *adhoc", decoded)
	}
	if got.A != 9 {
		t.Fatalf("decoded.A = %d, want 9", got.A)
	}
}

// TestSchemaEvolutionMissingFieldIsNil covers forward-compatible reads:
// a field present in an old schema but absent from the current
// TypeDescriptor is skipped, not an error.
func TestSchemaEvolutionMissingFieldIsNil(t *testing.T) {
	type wide struct {
		A int32
		B int32
	}
	type narrow struct {
		A int32
	}
	ctx := NewContext(ContextOptions{})
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Evolving",
		GoType:   reflect.TypeOf(wide{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register wide: %v", err)
	}
	w := NewWriter(ctx)
	if err := w.Write(wide{A: 1, B: 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	ctx2 := NewContext(ContextOptions{})
	if _, err := ctx2.Register(TypeDescriptorOptions{
		TypeName: "Evolving",
		GoType:   reflect.TypeOf(narrow{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register narrow: %v", err)
	}
	r := NewReader(ctx2, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.(*narrow)
	if !ok {
		t.Fatalf("decoded type = %T", decoded)
	}
	if got.A != 1 {
		t.Fatalf("decoded.A = %d, want 1", got.A)
	}
}

type outer struct {
	Label string
	In    point
}

// TestNestedValueStructFieldRoundTrip covers a struct field that is a
// value (not a pointer) whose own type is itself a registered
// ModeReflected type. decodeUserTypeAt always produces a *T (it needs
// the pointer identity for the handle table); setField must unwrap
// that pointer when the destination field's static type is the bare
// struct, not *T.
func TestNestedValueStructFieldRoundTrip(t *testing.T) {
	ctx := NewContext(ContextOptions{})
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Point",
		GoType:   reflect.TypeOf(point{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register Point: %v", err)
	}
	if _, err := ctx.Register(TypeDescriptorOptions{
		TypeName: "Outer",
		GoType:   reflect.TypeOf(outer{}),
		Mode:     ModeReflected,
	}); err != nil {
		t.Fatalf("Register Outer: %v", err)
	}

	w := NewWriter(ctx)
	if err := w.Write(&outer{Label: "o", In: point{X: 5, Y: 6}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.(*outer)
	if !ok {
		t.Fatalf("decoded type = %T", decoded)
	}
	if got.Label != "o" {
		t.Fatalf("decoded.Label = %q, want o", got.Label)
	}
	if got.In.X != 5 || got.In.Y != 6 {
		t.Fatalf("decoded.In = %+v, want {5 6}", got.In)
	}
}

// TestObjectArrRoundTrip covers a top-level OBJECT_ARR of distinct
// user-type objects decoded sequentially: the second and third
// elements must be read from their own headers, not from whatever
// bytes happen to follow the first element's header tag.
func TestObjectArrRoundTrip(t *testing.T) {
	ctx := newPointContext(t)
	list := []*point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}

	w := NewWriter(ctx)
	if err := w.Write(list); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.([]any)
	if !ok {
		t.Fatalf("decoded type = %T, want []any", decoded)
	}
	if len(got) != 3 {
		t.Fatalf("len(decoded) = %d, want 3", len(got))
	}
	want := [][2]int32{{1, 2}, {3, 4}, {5, 6}}
	for i, w := range want {
		p, ok := got[i].(*point)
		if !ok {
			t.Fatalf("decoded[%d] type = %T", i, got[i])
		}
		if p.X != w[0] || p.Y != w[1] {
			t.Fatalf("decoded[%d] = %+v, want {%d %d}", i, p, w[0], w[1])
		}
	}
}

// TestMapOfObjectsRoundTrip covers a top-level MAP whose values are
// user-type objects, exercising the same sequential-decode cursor as
// TestObjectArrRoundTrip but through tagMap instead of tagObjectArr.
func TestMapOfObjectsRoundTrip(t *testing.T) {
	ctx := newPointContext(t)
	m := map[string]*point{"a": {X: 1, Y: 2}, "b": {X: 3, Y: 4}}

	w := NewWriter(ctx)
	if err := w.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := append([]byte(nil), w.Bytes()...)
	w.Release()

	r := NewReader(ctx, out)
	decoded, err := r.ReadRoot()
	if err != nil {
		t.Fatalf("ReadRoot: %v", err)
	}
	got, ok := decoded.(map[any]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[any]any", decoded)
	}
	if len(got) != 2 {
		t.Fatalf("len(decoded) = %d, want 2", len(got))
	}
	pa, ok := got["a"].(*point)
	if !ok || pa.X != 1 || pa.Y != 2 {
		t.Fatalf("decoded[a] = %v, %v, want {1 2}", got["a"], ok)
	}
	pb, ok := got["b"].(*point)
	if !ok || pb.X != 3 || pb.Y != 4 {
		t.Fatalf("decoded[b] = %v, %v, want {3 4}", got["b"], ok)
	}
}
