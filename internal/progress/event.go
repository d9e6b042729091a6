package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageJobDone    Stage = "JOB_DONE"
	StageCheckpoint Stage = "CHECKPOINT"
	StageRunDone    Stage = "RUN_DONE"
)

// Kind names the command that produced an event.
type Kind string

// Supported run kinds.
const (
	KindSubmit   Kind = "submit"
	KindValidate Kind = "validate"
)

// Event captures a single milestone of a run.
type Event struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	Kind  Kind
	// PrimerID and Position identify the record for JOB_DONE events.
	PrimerID string
	Position int
	// Status is the submission or validation status of the record.
	Status string
	// Done and Total report run progress.
	Done  int
	Total int
	Dur   time.Duration
	// Note carries low-volume context such as a checkpoint path or error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindSubmit, KindValidate:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageJobDone:
		if e.Status == "" {
			return errors.New("job done requires status")
		}
	case StageCheckpoint:
		if e.Total <= 0 {
			return errors.New("checkpoint requires total")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// Reporter stamps events for one run and forwards them to an Emitter. A nil
// Reporter or Emitter drops events.
type Reporter struct {
	emitter Emitter
	runID   [16]byte
	kind    Kind
	now     func() time.Time
}

// NewReporter binds an emitter to a run.
func NewReporter(emitter Emitter, runID uuid.UUID, kind Kind, now func() time.Time) *Reporter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reporter{emitter: emitter, runID: UUIDToBytes(runID), kind: kind, now: now}
}

// RunStart reports the beginning of a run over total records.
func (r *Reporter) RunStart(total int, note string) {
	r.emit(Event{Stage: StageRunStart, Total: total, Note: note})
}

// JobDone reports one finished record.
func (r *Reporter) JobDone(position int, primerID, status string, done, total int, dur time.Duration) {
	r.emit(Event{
		Stage:    StageJobDone,
		PrimerID: primerID,
		Position: position,
		Status:   status,
		Done:     done,
		Total:    total,
		Dur:      dur,
	})
}

// Checkpoint reports a checkpoint write.
func (r *Reporter) Checkpoint(done, total int, path string) {
	r.emit(Event{Stage: StageCheckpoint, Done: done, Total: total, Note: path})
}

// RunDone reports the end of a run.
func (r *Reporter) RunDone(done, total int, dur time.Duration, note string) {
	r.emit(Event{Stage: StageRunDone, Done: done, Total: total, Dur: dur, Note: note})
}

func (r *Reporter) emit(evt Event) {
	if r == nil || r.emitter == nil {
		return
	}
	evt.RunID = r.runID
	evt.Kind = r.kind
	evt.TS = r.now()
	r.emitter.Emit(evt)
}
