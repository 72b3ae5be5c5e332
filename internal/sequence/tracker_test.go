package sequence

import (
	"testing"
)

func TestTracker_Advance(t *testing.T) {
	tr := New()
	if tr.Get(1) != 0 {
		t.Errorf("Expected default 0, got %d", tr.Get(1))
	}

	if !tr.Advance(1, 1) {
		t.Error("Expected advance from 0 to 1")
	}
	if tr.Get(1) != 1 {
		t.Errorf("Expected 1, got %d", tr.Get(1))
	}

	if tr.Advance(1, 1) {
		t.Error("Advancing to the same value should be rejected")
	}
	if tr.Advance(1, 0) {
		t.Error("Advancing backwards should be rejected")
	}
	if tr.Get(1) != 1 {
		t.Errorf("Entry must not move backwards, got %d", tr.Get(1))
	}

	if !tr.Advance(1, 5) {
		t.Error("Expected jump ahead to be accepted")
	}
	if tr.Next(1) != 6 {
		t.Errorf("Expected next 6, got %d", tr.Next(1))
	}
}

func TestTracker_SeenAndIsNext(t *testing.T) {
	tr := Tracker{0: 3}

	tests := []struct {
		name   string
		seq    int64
		seen   bool
		isNext bool
	}{
		{"older", 2, true, false},
		{"current", 3, true, false},
		{"next", 4, false, true},
		{"gap", 6, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Seen(0, tt.seq); got != tt.seen {
				t.Errorf("Seen(%d) = %v, want %v", tt.seq, got, tt.seen)
			}
			if got := tr.IsNext(0, tt.seq); got != tt.isNext {
				t.Errorf("IsNext(%d) = %v, want %v", tt.seq, got, tt.isNext)
			}
		})
	}

	// Sources are independent
	if !tr.IsNext(7, 1) {
		t.Error("Unknown source should expect sequence 1")
	}
}

func TestTracker_Copy(t *testing.T) {
	a := Tracker{0: 1}
	b := a.Copy()
	b.Advance(0, 9)

	if a.Get(0) != 1 {
		t.Errorf("Copy should be independent, source changed to %d", a.Get(0))
	}
}

func TestTracker_String(t *testing.T) {
	tr := Tracker{2: 1, 0: 4}
	if got := tr.String(); got != "{0:4, 2:1}" {
		t.Errorf("Expected sorted output, got %s", got)
	}
	if got := New().String(); got != "{}" {
		t.Errorf("Expected {}, got %s", got)
	}
}
