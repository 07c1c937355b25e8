package feedsync

import (
	"testing"
	"time"
)

func TestEstimateProgressMath(t *testing.T) {
	// 100 expected records, weights 1+3 -> 400 total steps.
	// 50 rows fetched (50 steps) and 25 stored (75 steps) -> 125/400.
	est := EstimateProgress(100, 1, 3, 50, 75, 10*time.Second)

	if want := 125.0 / 400.0; est.Fraction != want {
		t.Errorf("Fraction = %v, want %v", est.Fraction, want)
	}
	if !est.HasETA {
		t.Fatal("expected an ETA once steps completed")
	}
	// (400-125) * 10s / 125 = 22s
	if want := 22 * time.Second; est.ETA != want {
		t.Errorf("ETA = %v, want %v", est.ETA, want)
	}
	// 125 blended steps / 4 weight ~= 31 records.
	if est.Records != 31 {
		t.Errorf("Records = %d, want 31", est.Records)
	}
}

func TestEstimateProgressNoETABeforeFirstStep(t *testing.T) {
	est := EstimateProgress(100, 1, 3, 0, 0, 5*time.Second)
	if est.HasETA {
		t.Error("no ETA may be emitted before the first completed step")
	}
	if est.Fraction != 0 {
		t.Errorf("Fraction = %v, want 0", est.Fraction)
	}
}

func TestEstimateProgressCapsAndGuards(t *testing.T) {
	// Feed overshot the estimate: fraction capped at 1, ETA stays positive.
	est := EstimateProgress(10, 1, 3, 30, 90, time.Minute)
	if est.Fraction != 1 {
		t.Errorf("Fraction = %v, want capped at 1", est.Fraction)
	}
	if est.ETA < 0 {
		t.Errorf("ETA = %v, must never be negative", est.ETA)
	}

	// Zero expected count behaves, does not divide by zero.
	est = EstimateProgress(0, 1, 3, 4, 0, time.Second)
	if est.Fraction != 1 {
		t.Errorf("Fraction with zero estimate = %v, want 1", est.Fraction)
	}
}

func TestTrackerWeights(t *testing.T) {
	tr := NewTracker(1000, 1, 3)
	tr.RecordFetched(10)
	tr.RecordStored(10)

	if got := tr.fetchSteps.Load(); got != 10 {
		t.Errorf("fetch steps = %d, want 10", got)
	}
	if got := tr.storeSteps.Load(); got != 30 {
		t.Errorf("store steps = %d, want 30 (weighted)", got)
	}

	est := tr.Snapshot()
	if est.Records != 10 {
		t.Errorf("Records = %d, want 10", est.Records)
	}
}
