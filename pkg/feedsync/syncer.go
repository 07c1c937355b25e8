// Package feedsync drives the staleness-mark, stream, batch-upsert, prune
// protocol that synchronizes a remote reference feed into the lookup store.
//
// A run never deletes data it has not confirmed replacing: existing rows are
// only flagged stale up front, every row seen in the new feed is re-upserted
// with the flag cleared, and pruning of still-stale rows happens only after
// the stream completed. A failed or cancelled run leaves a partially-stale
// but fully queryable dataset that self-heals on the next successful run.
package feedsync

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hamref/refsync/internal/logctx"
	"github.com/hamref/refsync/pkg/humanfmt"
	"github.com/hamref/refsync/pkg/linefetch"
	"github.com/hamref/refsync/pkg/lookupdb"
	"github.com/hamref/refsync/pkg/rowcsv"
)

// State identifies where a sync run is in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateMarkingStale
	StateStreaming
	StateDraining
	StatePruning
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMarkingStale:
		return "marking_stale"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StatePruning:
		return "pruning"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind distinguishes transport failures from store failures.
type ErrorKind int

const (
	FetchFailed ErrorKind = iota
	StoreFailed
)

// SyncError wraps a run failure with the category and stage it occurred in.
type SyncError struct {
	Category string
	State    State
	Kind     ErrorKind
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s (%s): %v", e.Category, e.State, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal result of a run.
type Outcome int

const (
	// OutcomeCompleted means the feed was fetched and the store refreshed.
	OutcomeCompleted Outcome = iota
	// OutcomeNotModified means the stored validator token still matched and
	// the store was left untouched.
	OutcomeNotModified
)

// Progress is delivered to the caller's callback during a run.
type Progress struct {
	// Records is the blended count of logical records completed.
	Records int64
	// Fraction is the completed share of expected work, capped at 1.
	Fraction float64
	// ETA is valid only when HasETA is true.
	ETA    time.Duration
	HasETA bool
	// Text is a ready-to-display summary line.
	Text string
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Result summarizes a completed run.
type Result struct {
	Outcome Outcome
	// TotalRecords is the number of valid rows seen in the feed.
	TotalRecords int64
	// TotalActive is the subset of those rows flagged active.
	TotalActive int64
	// Skipped counts lines discarded as invalid (missing key or region).
	Skipped int64
	// Pruned counts previously stored rows absent from the new feed.
	Pruned int64
	// PrefixByRegion maps region code to the reference prefix derived from
	// the first key seen for that region.
	PrefixByRegion map[string]string
	// Elapsed is the wall-clock run duration.
	Elapsed time.Duration
	// ETag is the validator token to persist for the next run.
	ETag string
}

// Syncer runs feed synchronizations against a lookup store.
//
// No two runs for the same category may execute concurrently; queries
// against the store may, since stale rows stay readable until pruned.
type Syncer struct {
	// Store is the lookup store written by runs.
	Store *lookupdb.Store
	// Client is the HTTP client for feed fetches (default http.DefaultClient).
	Client *http.Client
}

// Sync runs one synchronization pass for the feed. etag is the validator
// token from the previous run ("" for an unconditional fetch); onProgress
// may be nil.
func (s *Syncer) Sync(ctx context.Context, desc Descriptor, etag string, onProgress ProgressFunc) (*Result, error) {
	desc = desc.withDefaults()
	if err := desc.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logctx.WithStr(ctx, "run_id", runID)
	ctx = logctx.WithStr(ctx, "category", desc.Category)
	log := logctx.FromContext(ctx)

	run := &syncRun{
		desc:     desc,
		store:    s.Store,
		tracker:  NewTracker(desc.ExpectedRecords, desc.FetchWeight, desc.StoreWeight),
		mapper:   rowcsv.NewHeaderMapper(desc.Dialect),
		prefixes: make(map[string]string),
		progress: onProgress,
	}
	run.state.Store(int32(StateIdle))

	log.Info().
		Str("url", desc.URL).
		Int("chunk_size", desc.ChunkSize).
		Int("batch_size", desc.BatchSize).
		Bool("sequential", desc.SequentialApply).
		Msg("starting feed sync")

	run.emit("Downloading raw data")

	fetchCfg := linefetch.Config{
		URL:       desc.URL,
		ChunkSize: desc.ChunkSize,
		ETag:      etag,
		Client:    s.Client,
		// The staleness mark is deferred until the server has confirmed new
		// content, so a not-modified response leaves the store untouched.
		OnStart: func() error {
			run.setState(StateMarkingStale)
			marked, err := s.Store.MarkCategoryStale(ctx, desc.Category)
			if err != nil {
				return run.fail(StoreFailed, err)
			}
			log.Debug().Int64("marked", marked).Msg("marked existing records stale")
			run.setState(StateStreaming)
			return nil
		},
	}

	var fetchRes *linefetch.Result
	var err error
	if desc.SequentialApply {
		fetchRes, err = run.runSequential(ctx, fetchCfg)
	} else {
		fetchRes, err = run.runOverlapped(ctx, fetchCfg)
	}
	if err != nil {
		run.setState(StateFailed)
		return nil, err
	}

	if fetchRes.NotModified {
		run.setState(StateComplete)
		log.Info().Msg("feed unchanged, store untouched")
		return &Result{
			Outcome: OutcomeNotModified,
			ETag:    fetchRes.ETag,
			Elapsed: run.tracker.Elapsed(),
		}, nil
	}

	run.setState(StatePruning)
	pruned, err := s.Store.DeleteStaleRemaining(ctx, desc.Category)
	if err != nil {
		run.setState(StateFailed)
		return nil, run.fail(StoreFailed, err)
	}

	run.setState(StateComplete)
	result := &Result{
		Outcome:        OutcomeCompleted,
		TotalRecords:   run.totalRecords,
		TotalActive:    run.totalActive,
		Skipped:        run.skipped,
		Pruned:         pruned,
		PrefixByRegion: run.prefixes,
		Elapsed:        run.tracker.Elapsed(),
		ETag:           fetchRes.ETag,
	}

	log.Info().
		Int64("total_records", result.TotalRecords).
		Int64("total_active", result.TotalActive).
		Int64("skipped", result.Skipped).
		Int64("pruned", result.Pruned).
		Int("regions", len(result.PrefixByRegion)).
		Dur("elapsed", result.Elapsed).
		Msg("feed sync complete")

	return result, nil
}

// syncRun is the transient state of a single pass.
type syncRun struct {
	desc     Descriptor
	store    *lookupdb.Store
	tracker  *Tracker
	mapper   *rowcsv.HeaderMapper
	prefixes map[string]string
	progress ProgressFunc

	state atomic.Int32

	totalRecords int64
	totalActive  int64
	skipped      int64

	emitMu sync.Mutex
}

func (r *syncRun) setState(s State) {
	r.state.Store(int32(s))
}

func (r *syncRun) currentState() State {
	return State(r.state.Load())
}

func (r *syncRun) fail(kind ErrorKind, err error) error {
	return &SyncError{
		Category: r.desc.Category,
		State:    r.currentState(),
		Kind:     kind,
		Err:      err,
	}
}

// emitProgress delivers a serialized progress snapshot.
func (r *syncRun) emitProgress() {
	if r.progress == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	est := r.tracker.Snapshot()
	p := Progress{
		Records:  est.Records,
		Fraction: est.Fraction,
		ETA:      est.ETA,
		HasETA:   est.HasETA,
	}
	if est.HasETA {
		p.Text = fmt.Sprintf("Loaded %s references. %s • %s seconds left.",
			humanfmt.Number(est.Records), humanfmt.Percent(est.Fraction), humanfmt.Seconds(est.ETA))
	} else {
		p.Text = fmt.Sprintf("Loaded %s references.", humanfmt.Number(est.Records))
	}
	r.progress(p)
}

// emit delivers a bare status line outside the estimator.
func (r *syncRun) emit(text string) {
	if r.progress == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.progress(Progress{Text: text})
}

// ingestLine parses, maps, and validates one line, returning the record and
// whether it should be kept. Header consumption and the first-seen-wins
// prefix index both happen here; only the fetch stage calls this.
func (r *syncRun) ingestLine(line string) (lookupdb.Record, bool) {
	row := r.mapper.Map(line)
	if row == nil {
		// Header row.
		return lookupdb.Record{}, false
	}

	rec, ok := r.desc.MapRow(row)
	if !ok || rec.Key == "" || rec.SubCategory == "" {
		r.skipped++
		return lookupdb.Record{}, false
	}

	r.totalRecords++
	if rec.Flags {
		r.totalActive++
	}
	if _, seen := r.prefixes[rec.SubCategory]; !seen {
		r.prefixes[rec.SubCategory] = strings.SplitN(rec.Key, "-", 2)[0]
	}
	r.tracker.RecordFetched(1)
	return rec, true
}

// runOverlapped streams the feed while a single writer goroutine drains a
// bounded pending channel into batched upserts. The channel capacity keeps
// memory bounded: when the writer falls behind, sends block and the fetch
// stage stops consuming chunks.
func (r *syncRun) runOverlapped(ctx context.Context, fetchCfg linefetch.Config) (*linefetch.Result, error) {
	pending := make(chan lookupdb.Record, r.desc.BatchSize*4)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		batch := make([]lookupdb.Record, 0, r.desc.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := r.store.UpsertBatch(gctx, r.desc.Category, batch); err != nil {
				return r.fail(StoreFailed, err)
			}
			r.tracker.RecordStored(len(batch))
			r.emitProgress()
			batch = batch[:0]
			return nil
		}

		for rec := range pending {
			batch = append(batch, rec)
			if len(batch) >= r.desc.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	var fetchRes *linefetch.Result
	g.Go(func() error {
		defer close(pending)

		res, err := linefetch.Fetch(gctx, fetchCfg, func(lines []string) error {
			for _, line := range lines {
				rec, keep := r.ingestLine(line)
				if !keep {
					continue
				}
				select {
				case pending <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			r.emitProgress()
			return nil
		})
		if err != nil {
			if _, ok := err.(*SyncError); ok {
				return err
			}
			return r.fail(FetchFailed, err)
		}

		fetchRes = res
		if !res.NotModified {
			r.setState(StateDraining)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetchRes, nil
}

// runSequential is the reference behavior: the whole feed is parsed into a
// pending queue first, then drained into batched upserts.
func (r *syncRun) runSequential(ctx context.Context, fetchCfg linefetch.Config) (*linefetch.Result, error) {
	var pending []lookupdb.Record

	res, err := linefetch.Fetch(ctx, fetchCfg, func(lines []string) error {
		for _, line := range lines {
			if rec, keep := r.ingestLine(line); keep {
				pending = append(pending, rec)
			}
		}
		r.emitProgress()
		return nil
	})
	if err != nil {
		if _, ok := err.(*SyncError); ok {
			return nil, err
		}
		return nil, r.fail(FetchFailed, err)
	}
	if res.NotModified {
		return res, nil
	}

	r.setState(StateDraining)
	for start := 0; start < len(pending); start += r.desc.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(StoreFailed, err)
		}
		end := start + r.desc.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := r.store.UpsertBatch(ctx, r.desc.Category, pending[start:end]); err != nil {
			return nil, r.fail(StoreFailed, err)
		}
		r.tracker.RecordStored(end - start)
		r.emitProgress()
	}

	return res, nil
}
