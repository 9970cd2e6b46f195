package status

import (
	"testing"
	"time"
)

func TestFirstLoad(t *testing.T) {
	var e Entity[int]
	e = Next(e, Loading)
	if e.Status != Loading {
		t.Errorf("Status = %q, want %q", e.Status, Loading)
	}
	if e.OldStatus != Absent {
		t.Errorf("OldStatus = %q, want Absent", e.OldStatus)
	}
}

func TestOldStatusTracksPrevious(t *testing.T) {
	var e Entity[int]
	for _, s := range []Status{Loading, Ready, Loading, Failed, Loading, Invalidated} {
		prev := e.Status
		e = Next(e, s)
		if e.OldStatus != prev {
			t.Errorf("after %q: OldStatus = %q, want %q", s, e.OldStatus, prev)
		}
	}
}

func TestReadySetsUpdatedAt(t *testing.T) {
	now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	var e Entity[int]
	e = Next(e, Loading)
	if !e.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt set on Loading: %v", e.UpdatedAt)
	}
	e = NextData(e, Ready, 7)
	if !e.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, now)
	}
	if e.Data != 7 {
		t.Errorf("Data = %d, want 7", e.Data)
	}
}

func TestFailClearsData(t *testing.T) {
	var e Entity[[]string]
	e = NextData(e, Ready, []string{"a"})
	e = Fail(e)
	if e.Status != Failed {
		t.Errorf("Status = %q, want %q", e.Status, Failed)
	}
	if e.OldStatus != Ready {
		t.Errorf("OldStatus = %q, want %q", e.OldStatus, Ready)
	}
	if e.Data != nil {
		t.Errorf("Data = %v, want nil", e.Data)
	}
}

func TestValueSemantics(t *testing.T) {
	var e Entity[int]
	e2 := Next(e, Loading)
	if e.Status != Absent {
		t.Errorf("input entity mutated: %q", e.Status)
	}
	if e2.Status != Loading {
		t.Errorf("Status = %q, want %q", e2.Status, Loading)
	}
}
