package observ

import (
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.clock = fakeClock(2 * time.Millisecond)
	stop := tm.Start("materialize")
	if took := stop("3 instances"); took != 2*time.Millisecond {
		t.Fatalf("took %v", took)
	}
	if again := stop("ignored"); again != 0 {
		t.Fatalf("second stop returned %v", again)
	}
	tm.Start("lower")("")

	r := tm.Report()
	if len(r.Phases) != 2 || r.TotalMS != 4 || r.Phases[0].Note != "3 instances" {
		t.Fatalf("report = %+v", r)
	}
	if s := r.String(); !strings.Contains(s, "// 3 instances") || !strings.Contains(s, "total") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestEmptyTimerReport(t *testing.T) {
	if r := NewTimer().Report(); r.Phases != nil || r.TotalMS != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestMergeSumsByName(t *testing.T) {
	r := Merge(
		Report{TotalMS: 3, Phases: []PhaseReport{{Name: "a", DurationMS: 1}, {Name: "b", DurationMS: 2}}},
		Report{TotalMS: 5, Phases: []PhaseReport{{Name: "b", DurationMS: 4}, {Name: "c", DurationMS: 1}}},
	)
	if r.TotalMS != 8 || len(r.Phases) != 3 || r.Phases[1].DurationMS != 6 || r.Phases[2].Name != "c" {
		t.Fatalf("merged = %+v", r)
	}
}
