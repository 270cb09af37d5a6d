package metadata

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/Nyrone/ignite"
	"github.com/Nyrone/ignite/metadata/outbox"
)

type point struct {
	X int32
	Y int32
}

type fakeTransport struct {
	mu        sync.Mutex
	published []TypeMetadata
	fail      bool
}

func (f *fakeTransport) Publish(ctx context.Context, m TypeMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.published = append(f.published, m.clone())
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func newRegisteredContext(t *testing.T) *ignite.Context {
	ctx := ignite.NewContext(ignite.ContextOptions{})
	if _, err := ctx.Register(ignite.TypeDescriptorOptions{
		TypeName:        "Point",
		GoType:          reflect.TypeOf(point{}),
		Mode:            ignite.ModeReflected,
		MetadataEnabled: true,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return ctx
}

func TestCoordinatorPublishesOnFirstWrite(t *testing.T) {
	ctx := newRegisteredContext(t)
	transport := &fakeTransport{}
	c := NewCoordinator(ctx, CoordinatorOptions{Transport: transport})

	w := ignite.NewWriter(ctx)
	if err := w.Write(&point{X: 1, Y: 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Release()

	if got := transport.count(); got != 1 {
		t.Fatalf("published %d times, want 1 (registration pre-populates the schema registry, but Coordinator must still publish on first write)", got)
	}

	m, ok := c.Lookup(ctx.IdMapper().TypeID("Point"))
	if !ok {
		t.Fatal("Lookup after first write found nothing")
	}
	if m.Fields["X"] == 0 || m.Fields["Y"] == 0 {
		t.Fatalf("Fields = %v", m.Fields)
	}
}

func TestCoordinatorDoesNotRepublishSameSchema(t *testing.T) {
	ctx := newRegisteredContext(t)
	transport := &fakeTransport{}
	NewCoordinator(ctx, CoordinatorOptions{Transport: transport})

	w := ignite.NewWriter(ctx)
	for i := 0; i < 3; i++ {
		if err := w.Write(&point{X: int32(i), Y: int32(i)}); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
		w.Reset()
	}
	w.Release()

	if got := transport.count(); got != 1 {
		t.Fatalf("published %d times across 3 writes of the same schema, want 1", got)
	}
}

func TestCoordinatorOutboxReplayOnRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")

	ctx := newRegisteredContext(t)
	ob, err := outbox.Open(dir, outbox.Options{})
	if err != nil {
		t.Fatalf("outbox.Open: %v", err)
	}
	failing := &fakeTransport{fail: true}
	NewCoordinator(ctx, CoordinatorOptions{Transport: failing, Outbox: ob})

	w := ignite.NewWriter(ctx)
	if err := w.Write(&point{X: 5, Y: 6}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Release()
	if got := failing.count(); got != 0 {
		t.Fatalf("failing transport recorded %d publishes, want 0", got)
	}
	if err := ob.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx2 := newRegisteredContext(t)
	ob2, err := outbox.Open(dir, outbox.Options{})
	if err != nil {
		t.Fatalf("reopen outbox: %v", err)
	}
	succeeding := &fakeTransport{}
	c2 := NewCoordinator(ctx2, CoordinatorOptions{Transport: succeeding, Outbox: ob2})
	if err := c2.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := succeeding.count(); got != 1 {
		t.Fatalf("replay published %d times, want 1", got)
	}
	m, ok := c2.Lookup(ctx2.IdMapper().TypeID("Point"))
	if !ok || m.Fields["X"] == 0 {
		t.Fatalf("Lookup after replay = %v, %v", m, ok)
	}
}

func TestCoordinatorMetadataConflictIsLogged(t *testing.T) {
	ctx := newRegisteredContext(t)
	transport := &fakeTransport{}
	c := NewCoordinator(ctx, CoordinatorOptions{Transport: transport})

	typeID := ctx.IdMapper().TypeID("Point")
	c.mu.Lock()
	c.byType[typeID] = TypeMetadata{
		TypeID:    typeID,
		Fields:    map[string]byte{"X": 0xFF},
		SchemaIDs: map[int32]struct{}{},
	}
	c.mu.Unlock()

	w := ignite.NewWriter(ctx)
	if err := w.Write(&point{X: 1, Y: 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Release()

	if got := transport.count(); got != 0 {
		t.Fatalf("published %d times despite a field-tag conflict, want 0", got)
	}
}
