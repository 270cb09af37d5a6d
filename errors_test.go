package ignite

import (
	"errors"
	"testing"
)

func TestCodecErrorIs(t *testing.T) {
	e1 := unknownType(5)
	e2 := unknownType(6)
	if !errors.Is(e1, e2) {
		t.Fatal("two UnknownType errors should satisfy errors.Is regardless of payload")
	}
	if errors.Is(e1, corruptFrame(nil, 0, nil, "x")) {
		t.Fatal("UnknownType should not match CorruptFrame")
	}
}

func TestCodecErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := userHookFailed(1, inner)
	if errors.Unwrap(e) != inner {
		t.Fatal("Unwrap should return the wrapped error")
	}
}

func TestCodecErrorMessageTruncatesLongData(t *testing.T) {
	data := make([]byte, 200)
	e := corruptFrame(data, 10, nil, "bad frame")
	msg := e.Error()
	if len(msg) == 0 {
		t.Fatal("Error() returned empty string")
	}
	// just check it doesn't embed all 200 bytes verbatim as hex (400 chars)
	if len(msg) > 400 {
		t.Fatalf("Error() message looks untruncated: %d chars", len(msg))
	}
}

func TestKindString(t *testing.T) {
	if CorruptFrame.String() != "CorruptFrame" {
		t.Fatalf("CorruptFrame.String() = %q", CorruptFrame.String())
	}
	if Kind(0).String() != "Unknown" {
		t.Fatalf("Kind(0).String() = %q, want Unknown", Kind(0).String())
	}
}
