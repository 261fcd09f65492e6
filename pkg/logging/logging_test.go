package logging

import "testing"

func TestNew(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := New(debug)
		if err != nil {
			t.Fatalf("New(%v): %v", debug, err)
		}
		if got := l.Desugar().Core().Enabled(-1); got != debug {
			t.Errorf("New(%v): debug enabled = %v", debug, got)
		}
	}
}

func TestLogr(t *testing.T) {
	l, err := New(false)
	if err != nil {
		t.Fatal(err)
	}
	lr := Logr(l).WithName("notify")
	if !lr.Enabled() {
		t.Error("info level should be enabled")
	}
	if lr.V(1).Enabled() {
		t.Error("V(1) maps to zap debug and should be off")
	}
}
