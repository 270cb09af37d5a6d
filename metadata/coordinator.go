package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Nyrone/ignite"
	"github.com/Nyrone/ignite/metadata/outbox"
)

// CoordinatorOptions configures a Coordinator, mirroring the core
// package's ContextOptions pattern: one plain struct to a constructor.
type CoordinatorOptions struct {
	Transport Transport
	// Outbox, if set, durably logs every publish before attempting it
	// and replays every committed entry on Open; the outbox keeps no
	// acknowledgment record, so entries whose publish already succeeded
	// are published again. Nil disables durability (metadata publish
	// becomes best-effort, in-memory only).
	Outbox *outbox.Outbox
	// Store, if set, caches merged metadata locally so Open can warm
	// Lookup results before the outbox replay (or transport) catches up.
	Store  *BoltStore
	Logger *slog.Logger
}

// Coordinator implements spec §4.7: it hooks a Context's
// SchemaObserverFunc, tracks which (typeId, schemaId) pairs have
// already been published (independent of the Context's own
// SchemaRegistry, which is pre-populated at Register time for local
// decoding and so would otherwise make the very first write look
// "already known" — see DESIGN.md), merges metadata, and publishes.
type Coordinator struct {
	ctx       *ignite.Context
	transport Transport
	outbox    *outbox.Outbox
	store     *BoltStore
	logger    *slog.Logger

	mu        sync.Mutex
	byType    map[int32]TypeMetadata
	published map[int32]map[int32]bool
}

func NewCoordinator(ctx *ignite.Context, o CoordinatorOptions) *Coordinator {
	logger := o.Logger
	if logger == nil {
		logger = ctx.Logger()
	}
	c := &Coordinator{
		ctx:       ctx,
		transport: o.Transport,
		outbox:    o.Outbox,
		store:     o.Store,
		logger:    logger,
		byType:    make(map[int32]TypeMetadata),
		published: make(map[int32]map[int32]bool),
	}
	ctx.SetSchemaObserver(c.onSchemaWritten)
	return c
}

// Open replays every committed outbox entry left by a previous process,
// re-attempting publish for each. Entries are not removed once the
// transport accepts them, so an entry that was already published is
// published again.
func (c *Coordinator) Open(ctx context.Context) error {
	if c.store != nil {
		cached, err := c.store.All()
		if err != nil {
			return fmt.Errorf("metadata: warm from store: %w", err)
		}
		c.mu.Lock()
		for _, m := range cached {
			c.byType[m.TypeID] = m
			c.markPublishedLocked(m)
		}
		c.mu.Unlock()
	}
	if c.outbox == nil {
		return nil
	}
	return c.outbox.Replay(func(e outbox.Entry) error {
		var m TypeMetadata
		if err := msgpack.Unmarshal(e.Data, &m); err != nil {
			c.logger.Error("metadata: dropping unreadable outbox entry", "err", err)
			return nil
		}
		c.mu.Lock()
		c.byType[m.TypeID] = m
		c.markPublishedLocked(m)
		c.mu.Unlock()
		if err := c.publish(ctx, m); err != nil {
			return err
		}
		if c.store != nil {
			return c.store.Put(m)
		}
		return nil
	})
}

func (c *Coordinator) markPublishedLocked(m TypeMetadata) {
	seen := c.published[m.TypeID]
	if seen == nil {
		seen = make(map[int32]bool)
		c.published[m.TypeID] = seen
	}
	for id := range m.SchemaIDs {
		seen[id] = true
	}
}

// onSchemaWritten is installed as the Context's SchemaObserverFunc; it
// implements spec §4.7's algorithm. Metadata publication requires the
// descriptor to carry a metadata map (MetadataEnabled at Register time
// on a ModeReflected type); types registered without it — including
// every ModeCustom and ModeExternal type, which have no static field
// list to publish regardless of MetadataEnabled — are encodable but
// silently excluded from cluster metadata, a documented Open Question
// decision.
func (c *Coordinator) onSchemaWritten(desc *ignite.TypeDescriptor, schema ignite.Schema) {
	fields := desc.MetadataMap()
	if fields == nil {
		return
	}
	typeID := desc.TypeID()
	schemaID := schema.ID()

	c.mu.Lock()
	if c.published[typeID][schemaID] {
		c.mu.Unlock()
		return // fast path: already published, nothing new to do
	}
	existing, ok := c.byType[typeID]
	if !ok {
		existing = newTypeMetadata(typeID, desc.TypeName(), "")
	}
	merged, err := existing.merge(fields, schemaID)
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("metadata: merge conflict", "typeId", typeID, "err", err)
		return
	}
	c.byType[typeID] = merged
	c.markPublishedLocked(TypeMetadata{TypeID: typeID, SchemaIDs: map[int32]struct{}{schemaID: {}}})
	c.mu.Unlock()

	if c.outbox != nil {
		if err := c.logLocked(merged); err != nil {
			c.logger.Error("metadata: outbox append failed", "typeId", typeID, "err", err)
		}
	}

	if err := c.publish(context.Background(), merged); err != nil {
		c.logger.Warn("metadata: publish failed, will retry from outbox on next Open", "typeId", typeID, "err", err)
		return
	}
	if c.store != nil {
		if err := c.store.Put(merged); err != nil {
			c.logger.Error("metadata: store cache update failed", "typeId", typeID, "err", err)
		}
	}
}

func (c *Coordinator) logLocked(m TypeMetadata) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return err
	}
	if err := c.outbox.Append(data); err != nil {
		return err
	}
	return c.outbox.Commit()
}

func (c *Coordinator) publish(ctx context.Context, m TypeMetadata) error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Publish(ctx, m)
}

// Lookup returns the coordinator's current accumulated metadata for
// typeID, if any write has gone through this Coordinator for it.
func (c *Coordinator) Lookup(typeID int32) (TypeMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byType[typeID]
	if !ok {
		return TypeMetadata{}, false
	}
	return m.clone(), true
}
