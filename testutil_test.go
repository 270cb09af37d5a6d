package ignite

import "testing"

// eq and assertPanics are the package's small shared test helpers,
// grounded on kvo/scalarconverter_test.go's eq and scan_modes_test.go's
// assertPanics.
func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
