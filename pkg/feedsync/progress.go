package feedsync

import (
	"sync/atomic"
	"time"
)

// Estimate is a point-in-time view of two-phase weighted sync progress.
//
// Fetching/parsing and store-writing proceed at very different rates, so
// each phase contributes steps scaled by its configured weight. The
// expected record count is only an estimate; Fraction may finish short of
// (or get capped at) 1 when the feed's true size diverges from it. The
// terminal "complete" signal is the orchestrator finishing, not Fraction
// reaching 1.
type Estimate struct {
	// Records is the blended number of logical records completed.
	Records int64
	// Fraction is the completed share of expected work, capped at 1.
	Fraction float64
	// ETA is the estimated remaining time. Only valid when HasETA is true;
	// before the first completed step there is no elapsed rate to project.
	ETA    time.Duration
	HasETA bool
}

// EstimateProgress computes an Estimate from weighted step counters.
// fetchSteps and storeSteps are already weighted (rows x phase weight).
func EstimateProgress(expectedRecords int64, fetchWeight, storeWeight int, fetchSteps, storeSteps int64, elapsed time.Duration) Estimate {
	totalWeight := int64(fetchWeight + storeWeight)
	totalSteps := expectedRecords * totalWeight
	completed := fetchSteps + storeSteps

	var est Estimate
	if totalWeight > 0 {
		est.Records = (completed + totalWeight/2) / totalWeight
	}

	if completed > 0 {
		if totalSteps > 0 {
			est.Fraction = float64(completed) / float64(totalSteps)
			if est.Fraction > 1 {
				est.Fraction = 1
			}
		} else {
			est.Fraction = 1
		}

		remaining := totalSteps - completed
		if remaining < 1 {
			remaining = 1
		}
		if elapsed < 0 {
			elapsed = 0
		}
		est.ETA = time.Duration(float64(remaining) * float64(elapsed) / float64(completed))
		est.HasETA = true
	}

	return est
}

// Tracker accumulates weighted step counters for one sync run. It is safe
// for concurrent use by the fetch and store stages.
type Tracker struct {
	expected    int64
	fetchWeight int
	storeWeight int
	startTime   time.Time

	fetchSteps atomic.Int64
	storeSteps atomic.Int64
}

// NewTracker creates a tracker for a run starting now.
func NewTracker(expectedRecords int64, fetchWeight, storeWeight int) *Tracker {
	return &Tracker{
		expected:    expectedRecords,
		fetchWeight: fetchWeight,
		storeWeight: storeWeight,
		startTime:   time.Now(),
	}
}

// RecordFetched counts rows completing the fetch/parse phase.
func (t *Tracker) RecordFetched(rows int) {
	t.fetchSteps.Add(int64(rows * t.fetchWeight))
}

// RecordStored counts rows completing the store-apply phase.
func (t *Tracker) RecordStored(rows int) {
	t.storeSteps.Add(int64(rows * t.storeWeight))
}

// Snapshot returns the current estimate.
func (t *Tracker) Snapshot() Estimate {
	return EstimateProgress(
		t.expected, t.fetchWeight, t.storeWeight,
		t.fetchSteps.Load(), t.storeSteps.Load(),
		time.Since(t.startTime),
	)
}

// Elapsed returns time since the run started.
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime)
}
