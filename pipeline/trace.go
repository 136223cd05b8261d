package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// Stage names the pipeline stages in execution order.
type Stage string

const (
	StagePlan       Stage = "plan"
	StageRetrieve   Stage = "retrieve"
	StageSanitize   Stage = "sanitize"
	StageSynthesize Stage = "synthesize"
)

// stageOrder enforces the one-way stage progression.
var stageOrder = map[Stage]int{
	StagePlan:       0,
	StageRetrieve:   1,
	StageSanitize:   2,
	StageSynthesize: 3,
}

// Status is the lifecycle state of a stage record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StageRecord captures one stage's outcome for auditing.
type StageRecord struct {
	Stage   Stage          `json:"stage"`
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// State is the pipeline run state. Transitions are one-way.
type State string

const (
	StatePlanning     State = "planning"
	StateRetrieving   State = "retrieving"
	StateSanitizing   State = "sanitizing"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Trace accumulates one record per pipeline stage so a run's decisions can
// be audited without re-running it. Traces are owned by a single run and are
// not safe for concurrent mutation; after the run finishes they are
// read-only.
type Trace struct {
	RunID  string        `json:"run_id"`
	State  State         `json:"state"`
	Stages []StageRecord `json:"stages"`
	// FailedStage names the stage that failed when State is failed.
	FailedStage Stage  `json:"failed_stage,omitempty"`
	FailReason  string `json:"fail_reason,omitempty"`
}

// NewTrace creates a trace in the initial planning state.
func NewTrace() *Trace {
	return &Trace{
		RunID: uuid.New().String(),
		State: StatePlanning,
	}
}

// begin appends a running record for the stage. Stages must begin in order,
// each exactly once; a violation is a programming error.
func (t *Trace) begin(stage Stage) *StageRecord {
	if want := len(t.Stages); stageOrder[stage] != want {
		panic(fmt.Sprintf("trace: stage %s begun out of order (position %d)", stage, want))
	}
	t.Stages = append(t.Stages, StageRecord{Stage: stage, Status: StatusRunning})
	t.State = runningState(stage)
	return &t.Stages[len(t.Stages)-1]
}

// complete marks the stage's record completed with details.
func (t *Trace) complete(stage Stage, details map[string]any) {
	rec := t.record(stage)
	rec.Status = StatusCompleted
	rec.Details = details
}

// warn attaches a warning to the stage's record without changing status.
func (t *Trace) warn(stage Stage, warning string) {
	t.record(stage).Warning = warning
}

// fail marks the stage's record errored and moves the trace to the terminal
// failed state.
func (t *Trace) fail(stage Stage, err error) {
	rec := t.record(stage)
	rec.Status = StatusError
	rec.Details = map[string]any{"error": err.Error()}
	t.State = StateFailed
	t.FailedStage = stage
	t.FailReason = err.Error()
}

// finish moves the trace to the terminal done state.
func (t *Trace) finish() {
	t.State = StateDone
}

func (t *Trace) record(stage Stage) *StageRecord {
	for i := range t.Stages {
		if t.Stages[i].Stage == stage {
			return &t.Stages[i]
		}
	}
	panic(fmt.Sprintf("trace: stage %s not begun", stage))
}

// Completed returns the stages that finished successfully, in order.
func (t *Trace) Completed() []StageRecord {
	var out []StageRecord
	for _, rec := range t.Stages {
		if rec.Status == StatusCompleted {
			out = append(out, rec)
		}
	}
	return out
}

func runningState(stage Stage) State {
	switch stage {
	case StagePlan:
		return StatePlanning
	case StageRetrieve:
		return StateRetrieving
	case StageSanitize:
		return StateSanitizing
	default:
		return StateSynthesizing
	}
}
