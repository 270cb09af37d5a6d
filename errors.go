package ignite

import (
	"fmt"
)

// Kind distinguishes the error conditions named by the codec.
type Kind int

const (
	// CorruptFrame marks a malformed header, truncated buffer, or an
	// overrunning totalLength. Fatal to the current decode only.
	CorruptFrame Kind = iota + 1
	// UnknownSchema marks a schemaId with no registered Schema under
	// COMPACT_FOOTER. Callers may refresh metadata and retry.
	UnknownSchema
	// UnknownType marks a typeId with no registered TypeDescriptor.
	UnknownType
	// TypeConfigError marks a duplicate field name or fieldId found
	// while building a TypeDescriptor. Fatal at registration.
	TypeConfigError
	// MetadataConflict marks a type-tag mismatch for the same field
	// name across two schemas of the same type. Unrecoverable.
	MetadataConflict
	// UserHookFailed wraps an error returned by a CustomSerializer's
	// WriteBinary or an ExternalSerializer's WriteExternal. WriteReplace
	// and ReadResolve hooks return no error, and a panic raised inside
	// one is not recovered: it propagates to the caller unwrapped.
	UserHookFailed
	// UnsupportedValue marks a Go value with no wire representation.
	UnsupportedValue
)

func (k Kind) String() string {
	switch k {
	case CorruptFrame:
		return "CorruptFrame"
	case UnknownSchema:
		return "UnknownSchema"
	case UnknownType:
		return "UnknownType"
	case TypeConfigError:
		return "TypeConfigError"
	case MetadataConflict:
		return "MetadataConflict"
	case UserHookFailed:
		return "UserHookFailed"
	case UnsupportedValue:
		return "UnsupportedValue"
	default:
		return "Unknown"
	}
}

// CodecError is the single error type returned across the package. Kind
// is always set; the other fields are filled in as available at the
// point of failure.
type CodecError struct {
	Kind     Kind
	TypeID   int32
	SchemaID int32
	Off      int
	Data     []byte
	Err      error
	Msg      string
}

func codecErrf(kind Kind, err error, format string, args ...any) *CodecError {
	return &CodecError{Kind: kind, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	var dataPart string
	if n := len(e.Data); n > 0 {
		if n <= prefixLen+suffixLen {
			dataPart = fmt.Sprintf(" data=(%d)%x", n, e.Data)
		} else {
			p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
			dataPart = fmt.Sprintf(" data=(%d)%x...%x", n, p, s)
		}
	}
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v (typeId=%d schemaId=%d off=%d)%s", e.Kind, e.Msg, e.Err, e.TypeID, e.SchemaID, e.Off, dataPart)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v (typeId=%d schemaId=%d off=%d)%s", e.Kind, e.Err, e.TypeID, e.SchemaID, e.Off, dataPart)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s (typeId=%d schemaId=%d off=%d)%s", e.Kind, e.Msg, e.TypeID, e.SchemaID, e.Off, dataPart)
	default:
		return fmt.Sprintf("%s (typeId=%d schemaId=%d off=%d)%s", e.Kind, e.TypeID, e.SchemaID, e.Off, dataPart)
	}
}

// Is reports whether target is a *CodecError with the same Kind, so
// errors.Is matches any two CodecErrors of equal Kind regardless of
// their payload; callers can also compare Kinds directly after an
// errors.As.
func (e *CodecError) Is(target error) bool {
	other, ok := target.(*CodecError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func corruptFrame(data []byte, off int, err error, format string, args ...any) *CodecError {
	e := codecErrf(CorruptFrame, err, format, args...)
	e.Data = data
	e.Off = off
	return e
}

func unknownSchema(typeID, schemaID int32) *CodecError {
	return &CodecError{Kind: UnknownSchema, TypeID: typeID, SchemaID: schemaID, Msg: "schema not registered"}
}

func unknownType(typeID int32) *CodecError {
	return &CodecError{Kind: UnknownType, TypeID: typeID, Msg: "type not registered"}
}

func typeConfigErrf(format string, args ...any) *CodecError {
	return codecErrf(TypeConfigError, nil, format, args...)
}

func metadataConflictErrf(typeID int32, format string, args ...any) *CodecError {
	e := codecErrf(MetadataConflict, nil, format, args...)
	e.TypeID = typeID
	return e
}

func userHookFailed(typeID int32, err error) *CodecError {
	return &CodecError{Kind: UserHookFailed, TypeID: typeID, Err: err, Msg: "hook failed"}
}

func unsupportedValue(format string, args ...any) *CodecError {
	return codecErrf(UnsupportedValue, nil, format, args...)
}
