package ignite

import "strings"

// IdMapper derives stable 32-bit typeIds from type names and stable
// 32-bit fieldIds from (typeId, field name). Implementations MUST be
// deterministic across processes; the DefaultIdMapper's algorithm is
// frozen and documented below, with test vectors pinned in
// idmapper_test.go per the testable-properties section on stable
// identifiers.
type IdMapper interface {
	TypeID(typeName string) int32
	FieldID(typeID int32, fieldName string) int32
}

// DefaultIdMapper lowercases the name and runs the classic
// Java-String.hashCode recurrence (h = 31*h + c) over its UTF-8 bytes.
// This is the one hash the package ships and documents, chosen because
// it is exactly what the lower-cased canonical form the spec mandates
// reduces to for ASCII type/field names, and it is cheap to port to any
// peer implementation that already carries a Java-compatible hashCode.
//
// FieldID hashes the field name alone, same recurrence, ignoring typeID
// (kept as a parameter so a custom IdMapper can scope fields per type;
// the default one does not need to, since fields are only ever looked
// up within the Schema of the type that declared them).
type DefaultIdMapper struct{}

func lowerCaseHash32(s string) int32 {
	var h int32
	lower := strings.ToLower(s)
	for i := 0; i < len(lower); i++ {
		h = 31*h + int32(lower[i])
	}
	return h
}

func (DefaultIdMapper) TypeID(typeName string) int32 {
	return lowerCaseHash32(typeName)
}

func (DefaultIdMapper) FieldID(typeID int32, fieldName string) int32 {
	return lowerCaseHash32(fieldName)
}

var _ IdMapper = DefaultIdMapper{}
