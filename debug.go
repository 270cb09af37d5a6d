package ignite

import (
	"fmt"
	"strings"
)

// Dump renders a decoded value tree for debugging, grounded on kvo's
// Dump/dump recursive AnyMap printer and the teacher's debug.go
// dumpRow/rpadf formatting style.
func Dump(v any) string {
	var buf strings.Builder
	dumpValue(&buf, v, 0)
	return buf.String()
}

func dumpValue(w *strings.Builder, v any, depth int) {
	switch tv := v.(type) {
	case nil:
		w.WriteString("null")
	case map[any]any:
		w.WriteByte('{')
		first := true
		for k, val := range tv {
			if !first {
				w.WriteString(", ")
			}
			first = false
			dumpValue(w, k, depth+1)
			w.WriteString(": ")
			dumpValue(w, val, depth+1)
		}
		w.WriteByte('}')
	case []any:
		w.WriteByte('[')
		for i, item := range tv {
			if i > 0 {
				w.WriteString(", ")
			}
			dumpValue(w, item, depth+1)
		}
		w.WriteByte(']')
	case []byte:
		fmt.Fprintf(w, "%s", hexstr(tv))
	case string:
		fmt.Fprintf(w, "%q", tv)
	default:
		fmt.Fprintf(w, "%v", tv)
	}
}

// DumpHeader renders a BinaryObject's fixed header fields, for
// inspecting wire output in tests without a full Reader round trip.
func (o *BinaryObject) DumpHeader() string {
	h, err := o.header()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return fmt.Sprintf(
		"typeId=%d hashCode=%d totalLength=%d schemaId=%d schemaOrRawOffset=%d flags=%#04x",
		h.typeID, h.hashCode, h.totalLength, h.schemaID, h.schemaOrRawOffset, uint16(h.flags),
	)
}
