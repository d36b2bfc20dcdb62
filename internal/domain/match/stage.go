package match

import "fmt"

// Stage is a step of the matching request state machine.
type Stage string

// Stages in pipeline order. StageFailed is absorbing.
const (
	StageReceived         Stage = "received"
	StageIndexQueried     Stage = "index_queried"
	StageAttributesJoined Stage = "attributes_joined"
	StageScored           Stage = "scored"
	StageRanked           Stage = "ranked"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

var nextStage = map[Stage]Stage{
	StageReceived:         StageIndexQueried,
	StageIndexQueried:     StageAttributesJoined,
	StageAttributesJoined: StageScored,
	StageScored:           StageRanked,
	StageRanked:           StageDone,
}

// Lifecycle tracks the stage of one request. Not safe for concurrent use.
type Lifecycle struct {
	stage Stage
}

// NewLifecycle starts a request in StageReceived.
func NewLifecycle() *Lifecycle { return &Lifecycle{stage: StageReceived} }

// Stage returns the current stage.
func (l *Lifecycle) Stage() Stage { return l.stage }

// Advance moves to the given stage. Only the next pipeline stage is accepted.
func (l *Lifecycle) Advance(to Stage) error {
	if next, ok := nextStage[l.stage]; !ok || next != to {
		return fmt.Errorf("illegal stage transition %s -> %s", l.stage, to)
	}
	l.stage = to
	return nil
}

// Fail moves to StageFailed from any stage except StageDone.
func (l *Lifecycle) Fail() {
	if l.stage != StageDone {
		l.stage = StageFailed
	}
}

// Terminal reports whether the request has finished.
func (l *Lifecycle) Terminal() bool {
	return l.stage == StageDone || l.stage == StageFailed
}
