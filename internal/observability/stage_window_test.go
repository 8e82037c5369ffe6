package observability

import "testing"

func TestStageWindowSnapshot(t *testing.T) {
	w := NewStageWindow(8)
	w.Observe("chat", 500)
	w.Observe("chat", 700)
	w.Observe("chat", 900)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "chat" {
		t.Fatalf("Stage = %q, want chat", s.Stage)
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 8000 {
		t.Fatalf("TargetP95MS = %.2f, want 8000", s.TargetP95MS)
	}
}

func TestStageWindowWrapsPastCapacity(t *testing.T) {
	w := NewStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("asr", float64(100*i))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want window capacity 4", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
}

func TestStageWindowIgnoresBadInput(t *testing.T) {
	w := NewStageWindow(4)
	w.Observe("", 100)
	w.Observe("asr", -1)

	if snap := w.Snapshot(); len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d, want 0", len(snap.Stages))
	}
}
