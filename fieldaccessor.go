package ignite

import (
	"reflect"
	"strings"
)

// fieldAccessor is one entry of a TypeDescriptor's field-accessor table:
// an ordered {fieldId, getter/setter path, tag} record built once per
// type by reflection. Grounded on the teacher's encflat.go
// (enumerateFlatComponents walking structs recursively) and reflect.go
// (typeInfoCache), generalized from "flatten into tuple components" to
// "derive a stable fieldId-addressed accessor table" per spec §9's
// design note on field-accessor tables.
type fieldAccessor struct {
	fieldID int32
	name    string
	index   []int
	typ     reflect.Type
}

func (a fieldAccessor) get(v reflect.Value) reflect.Value {
	for _, i := range a.index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

func (a fieldAccessor) set(v reflect.Value, fv reflect.Value) {
	for n, i := range a.index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		if n == len(a.index)-1 {
			v.Field(i).Set(fv)
			return
		}
		v = v.Field(i)
	}
}

// buildFieldAccessors walks rt's fields in declaration order, embedded
// (anonymous) struct fields first expanded in place as if promoted from
// a superclass, skipping unexported and explicitly excluded fields, and
// assigns each a fieldId via mapper. Duplicate names or colliding
// fieldIds within the same type are a TypeConfigError at registration.
func buildFieldAccessors(rt reflect.Type, mapper IdMapper, typeID int32) ([]fieldAccessor, error) {
	var out []fieldAccessor
	seenNames := map[string]bool{}
	seenIDs := map[int32]string{}
	var walk func(t reflect.Type, prefix []int) error
	walk = func(t reflect.Type, prefix []int) error {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" && !f.Anonymous {
				continue // unexported
			}
			tag := f.Tag.Get("ignite")
			if tag == "-" {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			if name == "" {
				name = f.Name
			}
			index := append(append([]int(nil), prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
				if err := walk(f.Type, index); err != nil {
					return err
				}
				continue
			}
			if seenNames[name] {
				return typeConfigErrf("duplicate field name %q", name)
			}
			seenNames[name] = true
			fieldID := mapper.FieldID(typeID, name)
			if other, ok := seenIDs[fieldID]; ok {
				return typeConfigErrf("fieldId collision: %q and %q both hash to %d", other, name, fieldID)
			}
			seenIDs[fieldID] = name
			out = append(out, fieldAccessor{fieldID: fieldID, name: name, index: index, typ: f.Type})
		}
		return nil
	}
	if err := walk(rt, nil); err != nil {
		return nil, err
	}
	return out, nil
}
