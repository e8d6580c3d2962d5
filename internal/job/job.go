package job

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State represents the lifecycle of a processing job.
type State string

const (
	StatePending    State = "pending"
	StateUnpacking  State = "unpacking"
	StateEnriching  State = "enriching"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// stateRank orders states for the forward-only transition check. Failed is
// reachable from any non-terminal state and ranks alongside Completed.
var stateRank = map[State]int{
	StatePending:    0,
	StateUnpacking:  1,
	StateEnriching:  2,
	StateFinalizing: 3,
	StateCompleted:  4,
	StateFailed:     4,
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	return []State{StatePending, StateUnpacking, StateEnriching, StateFinalizing, StateCompleted, StateFailed}
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := stateRank[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// IsTerminal reports whether a state ends the job's lifecycle.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsProcessing reports whether the state reflects an in-flight stage.
func (s State) IsProcessing() bool {
	switch s {
	case StateUnpacking, StateEnriching, StateFinalizing:
		return true
	default:
		return false
	}
}

// StageError records which pipeline stage a job failed in and why.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("stage %s failed", e.Stage)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Job is one unit of work: a single source archive progressing through the
// stage pipeline independently of all other jobs. All state access goes
// through the mutex so snapshots never observe a torn update.
type Job struct {
	id          string
	archiveName string
	archivePath string
	createdAt   time.Time

	mu         sync.Mutex
	state      State
	progress   float64
	result     string
	stageErr   *StageError
	workspace  string
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a Pending job for the given source archive. The identifier
// combines the archive stem with a short uniqueness token so same-named
// inputs within a batch stay distinct.
func New(archivePath, archiveName string) *Job {
	stem := strings.TrimSuffix(archiveName, filepath.Ext(archiveName))
	token := uuid.NewString()[:8]
	return &Job{
		id:          fmt.Sprintf("%s-%s", sanitizeStem(stem), token),
		archiveName: archiveName,
		archivePath: archivePath,
		createdAt:   time.Now().UTC(),
		state:       StatePending,
	}
}

func sanitizeStem(stem string) string {
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return "archive"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		default:
			return r
		}
	}, stem)
}

// ID returns the job's stable identifier.
func (j *Job) ID() string { return j.id }

// ArchiveName returns the original upload filename.
func (j *Job) ArchiveName() string { return j.archiveName }

// ArchivePath returns the source archive location.
func (j *Job) ArchivePath() string { return j.archivePath }

// Workspace returns the job's working directory, empty until allocation.
func (j *Job) Workspace() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.workspace
}

// SetWorkspace records the allocated working directory.
func (j *Job) SetWorkspace(dir string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.workspace = dir
}

// State returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Transition advances the job to the given state. Transitions are strictly
// forward; terminal states never revert. An illegal transition is a
// programming error and is rejected.
func (j *Job) Transition(next State) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	nextRank, ok := stateRank[next]
	if !ok {
		return fmt.Errorf("unknown state %q", next)
	}
	if j.state.IsTerminal() {
		return fmt.Errorf("job %s is terminal (%s), cannot transition to %s", j.id, j.state, next)
	}
	if nextRank <= stateRank[j.state] {
		return fmt.Errorf("job %s cannot move backward from %s to %s", j.id, j.state, next)
	}
	if next == StateCompleted && j.result == "" {
		return fmt.Errorf("job %s cannot complete without a result", j.id)
	}
	if next == StateFailed && j.stageErr == nil {
		return fmt.Errorf("job %s cannot fail without a cause", j.id)
	}

	if j.state == StatePending {
		j.startedAt = time.Now().UTC()
	}
	j.state = next
	if next.IsTerminal() {
		j.finishedAt = time.Now().UTC()
		j.progress = 1
	}
	return nil
}

// SetProgress raises the job's completion estimate. Progress is monotonically
// non-decreasing; lower values are ignored.
func (j *Job) SetProgress(fraction float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction > j.progress {
		j.progress = fraction
	}
}

// Complete records the output artifact and moves the job to Completed.
func (j *Job) Complete(resultPath string) error {
	j.mu.Lock()
	j.result = resultPath
	j.mu.Unlock()
	return j.Transition(StateCompleted)
}

// Fail records the failing stage and cause and moves the job to Failed.
func (j *Job) Fail(stage string, cause error) error {
	j.mu.Lock()
	j.stageErr = &StageError{Stage: stage, Cause: cause}
	j.mu.Unlock()
	return j.Transition(StateFailed)
}

// Err returns the failure cause, nil unless the job failed.
func (j *Job) Err() *StageError {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stageErr
}

// Snapshot is a point-in-time, internally consistent view of a job.
type Snapshot struct {
	ID          string
	ArchiveName string
	State       State
	Progress    float64
	Result      string
	FailedStage string
	Cause       string
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Snapshot captures the job's current state under its lock. The result field
// is populated only for Completed jobs and the failure fields only for Failed
// jobs, so a reader can never observe a contradictory pairing.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{
		ID:          j.id,
		ArchiveName: j.archiveName,
		State:       j.state,
		Progress:    j.progress,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		FinishedAt:  j.finishedAt,
	}
	if j.state == StateCompleted {
		snap.Result = j.result
	}
	if j.state == StateFailed && j.stageErr != nil {
		snap.FailedStage = j.stageErr.Stage
		if j.stageErr.Cause != nil {
			snap.Cause = j.stageErr.Cause.Error()
		}
	}
	return snap
}
