package log

import "testing"

// SetDefault should properly set the default logger when custom loggers are
// provided, and Root should return it afterwards.
func TestSetDefaultCustomLogger(t *testing.T) {
	custom := New("component", "test")
	SetDefault(custom)
	if Root() != custom {
		t.Error("expected custom logger to be set as default")
	}
}

func TestNewChildCarriesContext(t *testing.T) {
	parent := New("service", "consumer")
	child := parent.New("height", 42)
	if child == nil {
		t.Fatal("expected non-nil child logger")
	}
}
