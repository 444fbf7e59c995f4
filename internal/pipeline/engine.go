// Package pipeline orchestrates a sentiment run: discover transcripts per
// entity, extract and score the new ones, record them in the ledger, and
// flush rows into the durable dataset. One run at a time, guarded by an
// in-process flag plus a file lock.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"callsense/internal/catalog"
	"callsense/internal/config"
	"callsense/internal/dataset"
	"callsense/internal/extract"
	"callsense/internal/ledger"
	"callsense/internal/locator"
	"callsense/internal/logging"
	"callsense/internal/scoring"
)

// Catalog resolves entities and supplies the default run set.
type Catalog interface {
	Resolve(id string) (catalog.Entity, bool)
	Sector(id string) string
	Identifiers() []string
}

// Discoverer finds transcript references for one entity.
type Discoverer interface {
	Discover(ctx context.Context, symbol string) ([]locator.Reference, error)
}

// Analyzer scores one transcript's text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (scoring.Result, error)
}

// Ledger is the subset of ledger operations the engine needs.
type Ledger interface {
	IsProcessed(ctx context.Context, entity, period string) (bool, error)
	Mark(ctx context.Context, entity, period string, metadata map[string]any) error
	RecordRun(ctx context.Context, kind string, stats ledger.RunStats) error
}

// DatasetStore persists the merged dataset.
type DatasetStore interface {
	Load() ([]dataset.Row, error)
	Replace(rows []dataset.Row) error
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Catalog   Catalog
	Locator   Discoverer
	Extractor extract.Extractor
	Analyzer  Analyzer
	Ledger    Ledger
	Dataset   DatasetStore
}

// Engine drives pipeline runs.
type Engine struct {
	cfg     *config.Config
	deps    Deps
	limiter *rate.Limiter
	lock    *flock.Flock
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	runCtx  *RunContext
}

// New wires an engine. The request limiter paces every call to the document
// source; the file lock extends the single-run guard across processes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	rps := cfg.Source.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Engine{
		cfg:     cfg,
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		lock:    flock.New(cfg.RunLock()),
		logger:  logger.With(logging.String("component", "pipeline")),
	}
}

// Run processes the given entities, or the whole catalog when none are
// named. Item failures are logged and counted; only persistence failures or
// cancellation abort the run. Returns the final run snapshot. The run is
// recorded as incremental while the ledger filter is active, full when force
// rescores everything.
func (e *Engine) Run(ctx context.Context, entities []string, force bool) (Snapshot, error) {
	if len(entities) == 0 {
		entities = e.deps.Catalog.Identifiers()
	}
	rc, _, err := e.run(ctx, batchKind(force), entities, force)
	if rc == nil {
		return Snapshot{}, err
	}
	return rc.snapshot(), err
}

func batchKind(force bool) string {
	if force {
		return "full"
	}
	return "incremental"
}

// Single processes one entity and returns the rows it produced. It shares
// the single-run guard with Run.
func (e *Engine) Single(ctx context.Context, entity string, force bool) ([]dataset.Row, error) {
	resolved, ok := e.deps.Catalog.Resolve(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	_, rows, err := e.run(ctx, "single", []string{resolved.NSECode}, force)
	return rows, err
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status returns the current run's snapshot, or the last finished run's.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	rc := e.runCtx
	e.mu.Unlock()
	if rc == nil {
		return Snapshot{}
	}
	return rc.snapshot()
}

// Start begins a run of the given kind ("incremental" or "full") on a
// background goroutine and returns its snapshot immediately, so callers get
// the run id without waiting. An empty kind is derived from force.
func (e *Engine) Start(ctx context.Context, kind string, entities []string, force bool) (Snapshot, error) {
	if kind == "" {
		kind = batchKind(force)
	}
	if len(entities) == 0 {
		entities = e.deps.Catalog.Identifiers()
	}
	rc, err := e.acquire(kind, len(entities))
	if err != nil {
		return Snapshot{}, err
	}
	snap := rc.snapshot()
	go func() {
		defer e.release(rc)
		if _, err := e.runLocked(ctx, rc, kind, entities, force); err != nil {
			e.logger.Error("background run failed", logging.Error(err))
		}
	}()
	return snap, nil
}

func (e *Engine) run(ctx context.Context, mode string, entities []string, force bool) (*RunContext, []dataset.Row, error) {
	rc, err := e.acquire(mode, len(entities))
	if err != nil {
		return nil, nil, err
	}
	defer e.release(rc)

	rows, err := e.runLocked(ctx, rc, mode, entities, force)
	return rc, rows, err
}

func (e *Engine) runLocked(ctx context.Context, rc *RunContext, mode string, entities []string, force bool) ([]dataset.Row, error) {
	started := time.Now().UTC()
	e.logger.Info("run started",
		logging.String("mode", mode),
		logging.Int("entities", len(entities)),
		logging.Bool("force", force))

	flushEvery := e.cfg.Workflow.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 10
	}

	var all, pending []dataset.Row
	var runErr error
	flushable := true
	for i, entity := range entities {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		rc.setCurrent(entity, i)

		rows, err := e.processEntity(ctx, rc, entity, force)
		all = append(all, rows...)
		pending = append(pending, rows...)
		if err != nil {
			runErr = err
			break
		}

		if (i+1)%flushEvery == 0 {
			if err := e.flush(pending); err != nil {
				runErr = err
				flushable = false
				break
			}
			pending = nil
		}
	}

	// Flush whatever was produced, unless the dataset itself is failing.
	// A ledger mark failure still flushes: the pending rows' marks all
	// succeeded before it.
	if flushable {
		if err := e.flush(pending); err != nil && runErr == nil {
			runErr = err
		}
	}

	docs, fails := rc.stats()
	stats := ledger.RunStats{
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Entities:   len(entities),
		Documents:  docs,
		Failures:   fails,
	}
	if err := e.deps.Ledger.RecordRun(context.WithoutCancel(ctx), mode, stats); err != nil {
		e.logger.Warn("record run failed", logging.Error(err))
	}

	e.logger.Info("run finished",
		logging.String("mode", mode),
		logging.Int("documents", docs),
		logging.Int("failures", fails),
		logging.Duration("elapsed", time.Since(started)))
	return all, runErr
}

func (e *Engine) processEntity(ctx context.Context, rc *RunContext, entity string, force bool) ([]dataset.Row, error) {
	sector := e.deps.Catalog.Sector(entity)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	refs, err := e.deps.Locator.Discover(ctx, entity)
	if err != nil {
		rc.addFailure()
		rc.logf("%v", Wrap(ErrDiscovery, entity, "discover documents", err))
		e.logger.Warn("discovery failed", logging.String("entity", entity), logging.Error(err))
		return nil, nil
	}
	if len(refs) == 0 {
		rc.logf("no transcripts found for %s", entity)
		return nil, nil
	}

	var rows []dataset.Row
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		key := ref.Period.Key()

		if !force {
			done, err := e.deps.Ledger.IsProcessed(ctx, entity, key)
			if err != nil {
				return rows, Wrap(ErrPersistence, entity, "check ledger", err)
			}
			if done {
				continue
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return rows, err
		}
		doc, err := e.deps.Extractor.Extract(ctx, ref)
		if err != nil {
			if errors.Is(err, extract.ErrTooShort) {
				rc.logf("skipping %s %s: %v", entity, key, err)
				continue
			}
			rc.addFailure()
			rc.logf("%v", Wrap(ErrExtraction, entity, key, err))
			continue
		}

		result, err := e.deps.Analyzer.Analyze(ctx, doc.Text)
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			rc.addFailure()
			rc.logf("%v", Wrap(ErrScoring, entity, key, err))
			continue
		}

		row := dataset.Row{
			Entity:     entity,
			Sector:     sector,
			Year:       ref.Period.Year,
			Month:      ref.Period.Month,
			Composite:  result.Composite,
			Category:   dataset.Categorize(result.Composite),
			Compound:   result.Compound,
			Positive:   result.Distribution.Positive,
			Negative:   result.Distribution.Negative,
			Neutral:    result.Distribution.Neutral,
			Lexicon:    result.Lexicon,
			Guidance:   result.Guidance,
			Risk:       result.Risk,
			Sources:    1,
			Source:     doc.Source,
			AnalyzedAt: time.Now().UTC(),
		}

		meta := map[string]any{"source": doc.Source, "composite": row.Composite}
		if ref.URL != "" {
			meta["url"] = ref.URL
		}
		if ref.Path != "" {
			meta["path"] = ref.Path
		}
		// Mark before flushing so an interrupted run never rescores a
		// document it already paid for.
		if err := e.deps.Ledger.Mark(ctx, entity, key, meta); err != nil {
			return rows, Wrap(ErrPersistence, entity, "mark ledger", err)
		}

		rc.addDocument()
		rc.logf("scored %s %s: composite %.3f (%s)", entity, key, row.Composite, row.Category)
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Engine) flush(rows []dataset.Row) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := e.deps.Dataset.Load()
	if err != nil {
		return Wrap(ErrPersistence, "", "load dataset", err)
	}
	if err := e.deps.Dataset.Replace(dataset.Merge(existing, rows)); err != nil {
		return Wrap(ErrPersistence, "", "write dataset", err)
	}
	return nil
}

func (e *Engine) acquire(mode string, total int) (*RunContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil, ErrRunActive
	}
	if err := e.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	locked, err := e.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunActive
	}
	e.running = true
	e.runCtx = newRunContext(mode, total)
	return e.runCtx, nil
}

func (e *Engine) release(rc *RunContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.lock.Unlock(); err != nil {
		e.logger.Warn("release run lock failed", logging.Error(err))
	}
	e.running = false
	rc.finish()
}
