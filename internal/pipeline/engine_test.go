package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsense/internal/catalog"
	"callsense/internal/config"
	"callsense/internal/dataset"
	"callsense/internal/extract"
	"callsense/internal/locator"
	"callsense/internal/period"
	"callsense/internal/scoring"
	"callsense/internal/testsupport"
)

type stubCatalog struct {
	codes []string
}

func (s *stubCatalog) Resolve(id string) (catalog.Entity, bool) {
	for _, code := range s.codes {
		if code == id {
			return catalog.Entity{Name: id, NSECode: id, Sector: "Energy"}, true
		}
	}
	return catalog.Entity{}, false
}

func (s *stubCatalog) Sector(string) string { return "Energy" }

func (s *stubCatalog) Identifiers() []string { return s.codes }

type stubDiscoverer struct {
	refs map[string][]locator.Reference
	err  error
}

func (s *stubDiscoverer) Discover(_ context.Context, symbol string) ([]locator.Reference, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.refs[symbol], nil
}

type stubExtractor struct {
	err   error
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, ref locator.Reference) (*extract.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &extract.Document{Ref: ref, Text: "transcript text", Words: 500, Source: "remote"}, nil
}

type stubAnalyzer struct {
	result scoring.Result
	err    error
}

func (s *stubAnalyzer) Analyze(context.Context, string) (scoring.Result, error) {
	if s.err != nil {
		return scoring.Result{}, s.err
	}
	return s.result, nil
}

type failingDataset struct {
	err error
}

func (f *failingDataset) Load() ([]dataset.Row, error) { return nil, nil }
func (f *failingDataset) Replace([]dataset.Row) error  { return f.err }

func ref(entity, month string, year int) locator.Reference {
	return locator.Reference{
		Entity: entity,
		URL:    "https://docs.example/" + entity + "/" + month + ".pdf",
		Period: period.Period{Month: month, Year: year},
	}
}

func newTestEngine(t *testing.T, deps Deps) (*Engine, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Source.RequestsPerSecond = 1000
	cfg.Workflow.FlushEvery = 2

	if deps.Ledger == nil {
		deps.Ledger = testsupport.MustOpenLedger(t, cfg)
	}
	if deps.Dataset == nil {
		deps.Dataset = dataset.NewStore(cfg.DatasetPath())
	}
	return New(cfg, deps, nil), cfg
}

func happyDeps() Deps {
	return Deps{
		Catalog: &stubCatalog{codes: []string{"ACME", "OTHER"}},
		Locator: &stubDiscoverer{refs: map[string][]locator.Reference{
			"ACME":  {ref("ACME", "Nov", 2023), ref("ACME", "Feb", 2024)},
			"OTHER": {ref("OTHER", "Nov", 2023)},
		}},
		Extractor: &stubExtractor{},
		Analyzer:  &stubAnalyzer{result: scoring.Result{Composite: 0.3, Compound: 0.4, Chunks: 1}},
	}
}

func TestRunScoresAndPersists(t *testing.T) {
	deps := happyDeps()
	engine, cfg := newTestEngine(t, deps)

	snap, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Documents)
	assert.Zero(t, snap.Failures)
	assert.False(t, snap.Running)
	assert.NotEmpty(t, snap.RunID)
	assert.NotEmpty(t, snap.Log)

	rows, err := dataset.NewStore(cfg.DatasetPath()).Load()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Positive", rows[0].Category)
	assert.Equal(t, "Energy", rows[0].Sector)

	done, err := engine.deps.Ledger.IsProcessed(context.Background(), "ACME", "Nov 2023")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunIsIdempotent(t *testing.T) {
	deps := happyDeps()
	engine, _ := newTestEngine(t, deps)

	_, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)

	extractor := deps.Extractor.(*stubExtractor)
	firstCalls := extractor.calls

	snap, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Zero(t, snap.Documents, "second run should skip everything via the ledger")
	assert.Equal(t, firstCalls, extractor.calls, "no re-extraction on a clean second run")
}

func TestRunForceRescoresEverything(t *testing.T) {
	deps := happyDeps()
	engine, _ := newTestEngine(t, deps)

	_, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)

	snap, err := engine.Run(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Documents)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	engine, _ := newTestEngine(t, happyDeps())

	rc, err := engine.acquire("full", 1)
	require.NoError(t, err)
	defer engine.release(rc)

	_, err = engine.Run(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrRunActive)
}

func TestRunDiscoveryFailureIsNotFatal(t *testing.T) {
	deps := happyDeps()
	deps.Locator = &stubDiscoverer{err: errors.New("source unreachable")}
	engine, _ := newTestEngine(t, deps)

	snap, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Zero(t, snap.Documents)
	assert.Equal(t, 2, snap.Failures)
}

func TestRunSkipsTooShortDocuments(t *testing.T) {
	deps := happyDeps()
	deps.Extractor = &stubExtractor{err: extract.ErrTooShort}
	engine, _ := newTestEngine(t, deps)

	snap, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Zero(t, snap.Documents)
	assert.Zero(t, snap.Failures, "short documents are skips, not failures")
}

func TestRunPersistenceFailureIsFatal(t *testing.T) {
	deps := happyDeps()
	deps.Dataset = &failingDataset{err: errors.New("disk full")}
	engine, _ := newTestEngine(t, deps)

	_, err := engine.Run(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestRunHonorsCancellation(t *testing.T) {
	engine, _ := newTestEngine(t, happyDeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Run(ctx, nil, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, engine.Running(), "guard must be released after a canceled run")
}

func TestSingle(t *testing.T) {
	deps := happyDeps()
	engine, _ := newTestEngine(t, deps)

	_, err := engine.Single(context.Background(), "GHOST", false)
	assert.Error(t, err)

	rows, err := engine.Single(context.Background(), "ACME", false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ACME", rows[0].Entity)

	// The guard is shared: the single run marked the ledger too.
	rows, err = engine.Single(context.Background(), "ACME", false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStatusReflectsLastRun(t *testing.T) {
	engine, _ := newTestEngine(t, happyDeps())

	assert.Empty(t, engine.Status().RunID, "no run yet")

	_, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)

	snap := engine.Status()
	assert.False(t, snap.Running)
	assert.Equal(t, "incremental", snap.Mode)
	assert.Equal(t, 3, snap.Documents)
}

func TestRunRecordsKindInHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Source.RequestsPerSecond = 1000
	led := testsupport.MustOpenLedger(t, cfg)

	deps := happyDeps()
	deps.Ledger = led
	deps.Dataset = dataset.NewStore(cfg.DatasetPath())
	engine := New(cfg, deps, nil)

	_, err := engine.Run(context.Background(), nil, false)
	require.NoError(t, err)

	summary, err := led.Summary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary.LastIncremental, "no-force run must land in the incremental history")
	assert.Equal(t, "incremental", summary.LastIncremental.Kind)
	assert.Equal(t, 3, summary.LastIncremental.Documents)
	assert.Nil(t, summary.LastFull)

	_, err = engine.Run(context.Background(), nil, true)
	require.NoError(t, err)

	summary, err = led.Summary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary.LastFull, "force run must land in the full history")
	assert.Equal(t, "full", summary.LastFull.Kind)
	assert.Equal(t, 3, summary.LastFull.Documents)
}

// markFailLedger lets the first marks through, then fails.
type markFailLedger struct {
	Ledger
	allowed int
	marks   int
}

func (m *markFailLedger) Mark(ctx context.Context, entity, period string, metadata map[string]any) error {
	m.marks++
	if m.marks > m.allowed {
		return errors.New("ledger write failed")
	}
	return m.Ledger.Mark(ctx, entity, period, metadata)
}

func TestMarkFailureStillFlushesScoredRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Source.RequestsPerSecond = 1000

	deps := happyDeps()
	deps.Ledger = &markFailLedger{Ledger: testsupport.MustOpenLedger(t, cfg), allowed: 1}
	deps.Dataset = dataset.NewStore(cfg.DatasetPath())
	engine := New(cfg, deps, nil)

	_, err := engine.Run(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrPersistence)

	// The first document's mark succeeded, so its row must not be lost.
	rows, err := dataset.NewStore(cfg.DatasetPath()).Load()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0].Entity)
	assert.Equal(t, "Nov 2023", rows[0].PeriodKey())
}
