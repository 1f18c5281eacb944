// Package streammerge implements the per-run SSE event log and streaming
// delta merge used by the daemon and CLI to surface LLM output progressively.
package streammerge

import (
	"strings"
	"sync"
	"time"
)

// EventName identifies the kind of an SseEvent.
type EventName string

const (
	EventChunk  EventName = "chunk"
	EventError  EventName = "error"
	EventSlides EventName = "slides"
	EventStatus EventName = "status"
	EventDone   EventName = "done"
)

// SseEvent is one entry in a run's event log, wire-formatted by the daemon as
// "event: <name>\ndata: <json>\n\n".
type SseEvent struct {
	Name EventName   `json:"-"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"-"`
}

// ChunkData is the payload of a "chunk" event.
type ChunkData struct {
	Text string `json:"text"`
}

// ErrorData is the payload of an "error" event.
type ErrorData struct {
	Message string `json:"message"`
}

// subscriber is one live SSE consumer of a bus.
type subscriber struct {
	events chan SseEvent
}

// terminalSendTimeout bounds how long a blocking delivery of the done/error
// terminal event waits for a slow subscriber before giving up on it.
const terminalSendTimeout = 500 * time.Millisecond

// subscriberBuffer is the per-subscriber channel depth; a subscriber that
// falls this far behind drops non-terminal events rather than stalling the
// writer.
const subscriberBuffer = 256

// Bus is a single run's event log plus live subscriber fan-out. One Bus is
// created per run; events are appended from a single writer goroutine (the
// orchestrator driving that run), so ordering within a run is total.
type Bus struct {
	mu          sync.Mutex
	runID       string
	events      []SseEvent
	subscribers map[int]*subscriber
	nextSubID   int
	done        bool

	// merged holds the raw concatenation of chunk deltas seen so far, used
	// by Append to resolve prefix-extending replays before they're logged.
	merged strings.Builder
}

// NewBus creates an empty event bus for the given run ID.
func NewBus(runID string) *Bus {
	return &Bus{
		runID:       runID,
		subscribers: make(map[int]*subscriber),
	}
}

// RunID returns the ID of the run this bus tracks.
func (b *Bus) RunID() string {
	return b.runID
}

// mergeStreamingChunk decides how a new delta combines with what's already
// been emitted. Some providers replay and extend a previous delta rather than
// sending a pure suffix; when next is such a prefix-extending replay of
// previous, the longer string is returned as-is instead of concatenating.
func mergeStreamingChunk(previous, next string) string {
	if next == previous {
		return previous
	}
	if strings.HasPrefix(next, previous) {
		return next
	}
	if strings.HasPrefix(previous, next) {
		return previous
	}
	return previous + next
}

// AppendChunk merges a new streaming delta into the run's accumulated text
// and appends the resulting chunk event to the log, broadcasting it to live
// subscribers. The event's Data.Text is the merged *delta* relative to what
// was previously accumulated, matching what callers append to their own
// buffers client-side.
func (b *Bus) AppendChunk(delta string) {
	b.mu.Lock()
	merged := mergeStreamingChunk(b.merged.String(), delta)
	newSuffix := strings.TrimPrefix(merged, b.merged.String())
	b.merged.Reset()
	b.merged.WriteString(merged)
	ev := SseEvent{Name: EventChunk, Data: ChunkData{Text: newSuffix}, At: timeNow()}
	b.appendLocked(ev, false)
	b.mu.Unlock()
}

// AppendStatus appends a status event (non-terminal, best-effort delivery).
func (b *Bus) AppendStatus(data interface{}) {
	b.mu.Lock()
	b.appendLocked(SseEvent{Name: EventStatus, Data: data, At: timeNow()}, false)
	b.mu.Unlock()
}

// AppendSlides appends a slides progress/result event (non-terminal).
func (b *Bus) AppendSlides(data interface{}) {
	b.mu.Lock()
	b.appendLocked(SseEvent{Name: EventSlides, Data: data, At: timeNow()}, false)
	b.mu.Unlock()
}

// AppendError appends a terminal error event and closes the bus to further
// writes. Delivery to each live subscriber waits up to terminalSendTimeout.
func (b *Bus) AppendError(message string) {
	b.mu.Lock()
	b.appendLocked(SseEvent{Name: EventError, Data: ErrorData{Message: message}, At: timeNow()}, true)
	b.done = true
	b.mu.Unlock()
}

// Done marks the run as finished successfully, appending a terminal done
// event and closing the bus.
func (b *Bus) Done() {
	b.mu.Lock()
	b.appendLocked(SseEvent{Name: EventDone, Data: struct{}{}, At: timeNow()}, true)
	b.done = true
	b.mu.Unlock()
}

// appendLocked records ev in the log and fans it out to subscribers. Caller
// must hold b.mu. Terminal events are delivered with a bounded blocking send
// so a slow subscriber still observes run completion; non-terminal events
// are dropped for any subscriber whose buffer is full.
func (b *Bus) appendLocked(ev SseEvent, terminal bool) {
	b.events = append(b.events, ev)
	for _, sub := range b.subscribers {
		if terminal {
			select {
			case sub.events <- ev:
			case <-time.After(terminalSendTimeout):
			}
			continue
		}
		select {
		case sub.events <- ev:
		default:
		}
	}
}

// Subscribe registers a live subscriber and returns its event channel plus an
// unsubscribe function. If the run is already done, the returned channel is
// pre-loaded with a full replay of the log followed by the closing event,
// matching "subscribers connecting after done receive a replay, then done".
func (b *Bus) Subscribe() (<-chan SseEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		replay := make(chan SseEvent, len(b.events))
		for _, ev := range b.events {
			replay <- ev
		}
		close(replay)
		return replay, func() {}
	}

	id := b.nextSubID
	b.nextSubID++
	sub := &subscriber{events: make(chan SseEvent, subscriberBuffer)}
	b.subscribers[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(s.events)
		}
	}
	return sub.events, unsubscribe
}

// Snapshot returns a copy of the log recorded so far, for diagnostics.
func (b *Bus) Snapshot() []SseEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SseEvent, len(b.events))
	copy(out, b.events)
	return out
}

// timeNow is a narrow indirection point so tests can stub event timestamps.
var timeNow = time.Now
