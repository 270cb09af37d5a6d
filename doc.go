/*
Package ignite implements a schema-aware, language-neutral binary object
codec: a bit-exact wire format with in-place field lookup, paired with a
type/schema registry and a metadata evolution protocol.

We implement:

1. A Writer that encodes a value tree into bytes, tracking a handle table
for cycles/sharing and emitting a schema footer for random field access.

2. A Reader that decodes those bytes, either materializing a full value or
resolving a single field by name/id without touching the rest of the
object.

3. A BinaryObject, a lazy view over an encoded byte range that exposes
typeId/fieldId access and on-demand deserialization.

4. A Context owning an IdMapper, a SchemaRegistry, and the set of known
TypeDescriptors, plus a metadata.Coordinator (package metadata) that
detects schema evolution during writes and publishes merged per-type
metadata through a caller-supplied transport.

# Technical Details

**Header.** Every encoded user-type value starts with a fixed 24-byte
header (tag, version, flags, typeId, hashCode, totalLength, schemaId,
schemaOrRawOffset), followed by the field payload, an optional schema
footer ((fieldId?, offset) pairs), and an optional raw tail written by a
custom serializer. See wiretags.go for the exact byte layout and tag
values.

**Random field access.** Reader.Field seeks directly to a field's byte
offset using either the schema footer or a SchemaRegistry lookup
(COMPACT_FOOTER), without materializing the rest of the object.

**Cycles and sharing.** The Writer maintains a handle table mapping object
identity to the byte offset of its header; repeated objects are replaced
with a HANDLE tag and a back-offset. The Reader's handle table mirrors
this on the way in, installing placeholder values before decoding
children so cyclic graphs round-trip correctly.

**Global/singleton state.** Context is explicit and passed into every
codec call; there is no process-wide default registry.
*/
package ignite
