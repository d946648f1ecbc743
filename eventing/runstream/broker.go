// Package runstream buffers published events per run so an HTTP caller can
// poll for everything since a given cursor, instead of only ever seeing the
// final result of a run. It implements agent.EventSink directly, so it can
// sit in place of (or alongside, via a fan-out sink) eventing/inmem.
package runstream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"deepagent/agent"
)

// DefaultHistoryLimit bounds how many events the broker retains per run
// before dropping the oldest ones.
const DefaultHistoryLimit = 32

var (
	ErrCursorInvalid = errors.New("runstream: cursor is invalid")
	ErrCursorExpired = errors.New("runstream: cursor expired")
)

// StreamEvent pairs a published agent.Event with a monotonically increasing
// per-run ID so callers can resume from where they left off.
type StreamEvent struct {
	ID    int64       `json:"id"`
	Event agent.Event `json:"event"`
}

// Broker is an agent.EventSink that retains a bounded history of events per
// run, addressable by cursor.
type Broker struct {
	mu           sync.RWMutex
	historyLimit int
	runs         map[agent.RunID]*runHistory
}

type runHistory struct {
	nextID int64
	events []StreamEvent
}

var _ agent.EventSink = (*Broker)(nil)

// New returns a Broker retaining up to historyLimit events per run
// (DefaultHistoryLimit if non-positive).
func New(historyLimit int) *Broker {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Broker{
		historyLimit: historyLimit,
		runs:         make(map[agent.RunID]*runHistory),
	}
}

// Publish appends event to its run's history, evicting the oldest entries
// once historyLimit is exceeded.
func (b *Broker) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := agent.ValidateEvent(event); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.runLocked(event.RunID)
	next := StreamEvent{
		ID:    history.nextID,
		Event: cloneEvent(event),
	}
	history.nextID++
	history.events = append(history.events, next)
	if len(history.events) > b.historyLimit {
		drop := len(history.events) - b.historyLimit
		history.events = history.events[drop:]
	}
	return nil
}

// EventsAfter returns every retained event for runID strictly newer than
// cursor, oldest first. A cursor of 0 against a run with no history yet
// returns an empty result rather than an error.
func (b *Broker) EventsAfter(runID agent.RunID, cursor int64) ([]StreamEvent, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run_id is required", agent.ErrInvalidRunID)
	}
	if cursor < 0 {
		return nil, fmt.Errorf("%w: cursor must be non-negative", ErrCursorInvalid)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	history, ok := b.runs[runID]
	if !ok {
		if cursor == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: no events for run %q", ErrCursorInvalid, runID)
	}

	if cursor >= history.nextID {
		return nil, fmt.Errorf(
			"%w: cursor=%d is beyond latest id=%d",
			ErrCursorInvalid,
			cursor,
			history.nextID-1,
		)
	}

	if len(history.events) > 0 {
		oldestAvailable := history.events[0].ID - 1
		if cursor < oldestAvailable {
			return nil, fmt.Errorf(
				"%w: cursor=%d oldest_available=%d",
				ErrCursorExpired,
				cursor,
				oldestAvailable,
			)
		}
	}

	start := 0
	for start < len(history.events) && history.events[start].ID <= cursor {
		start++
	}

	out := make([]StreamEvent, len(history.events)-start)
	for i := start; i < len(history.events); i++ {
		out[i-start] = cloneStreamEvent(history.events[i])
	}
	return out, nil
}

func (b *Broker) runLocked(runID agent.RunID) *runHistory {
	history, ok := b.runs[runID]
	if ok {
		return history
	}
	history = &runHistory{
		nextID: 1,
		events: make([]StreamEvent, 0, b.historyLimit),
	}
	b.runs[runID] = history
	return history
}

func cloneStreamEvent(in StreamEvent) StreamEvent {
	return StreamEvent{
		ID:    in.ID,
		Event: cloneEvent(in.Event),
	}
}

func cloneEvent(in agent.Event) agent.Event {
	out := in
	if in.Message != nil {
		message := agent.CloneMessage(*in.Message)
		out.Message = &message
	}
	if in.ToolResult != nil {
		result := *in.ToolResult
		out.ToolResult = &result
	}
	return out
}
