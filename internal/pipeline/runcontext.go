package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxLogLines caps the rolling run log exposed through status.
const maxLogLines = 200

// RunContext tracks the live state of one pipeline run. All access goes
// through the mutex; Snapshot hands out copies.
type RunContext struct {
	mu sync.Mutex

	id        string
	mode      string
	startedAt time.Time
	running   bool

	total     int
	processed int
	documents int
	failures  int
	current   string
	log       []string
}

// Snapshot is a read-only copy of a run's state.
type Snapshot struct {
	RunID     string    `json:"run_id"`
	Running   bool      `json:"running"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Documents int       `json:"documents"`
	Failures  int       `json:"failures"`
	Current   string    `json:"current,omitempty"`
	Log       []string  `json:"log"`
}

func newRunContext(mode string, total int) *RunContext {
	return &RunContext{
		id:        uuid.NewString(),
		mode:      mode,
		startedAt: time.Now().UTC(),
		running:   true,
		total:     total,
	}
}

func (rc *RunContext) setCurrent(entity string, index int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.current = entity
	rc.processed = index
}

func (rc *RunContext) addDocument() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.documents++
}

func (rc *RunContext) addFailure() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.failures++
}

func (rc *RunContext) logf(format string, args ...any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	line := fmt.Sprintf("%s %s", time.Now().UTC().Format("15:04:05"), fmt.Sprintf(format, args...))
	rc.log = append(rc.log, line)
	if len(rc.log) > maxLogLines {
		rc.log = rc.log[len(rc.log)-maxLogLines:]
	}
}

func (rc *RunContext) finish() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.running = false
	rc.current = ""
	rc.processed = rc.total
}

func (rc *RunContext) snapshot() Snapshot {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	logCopy := make([]string, len(rc.log))
	copy(logCopy, rc.log)
	return Snapshot{
		RunID:     rc.id,
		Running:   rc.running,
		Mode:      rc.mode,
		StartedAt: rc.startedAt,
		Total:     rc.total,
		Processed: rc.processed,
		Documents: rc.documents,
		Failures:  rc.failures,
		Current:   rc.current,
		Log:       logCopy,
	}
}

func (rc *RunContext) stats() (documents, failures int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.documents, rc.failures
}
