package streammerge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeStreamingChunk_PlainConcat(t *testing.T) {
	got := mergeStreamingChunk("Hello, ", "world")
	assert.Equal(t, "Hello, world", got)
}

func TestMergeStreamingChunk_PrefixExtendingReplay(t *testing.T) {
	got := mergeStreamingChunk("Hello", "Hello, world")
	assert.Equal(t, "Hello, world", got)
}

func TestMergeStreamingChunk_ShorterReplayKeepsLonger(t *testing.T) {
	got := mergeStreamingChunk("Hello, world", "Hello")
	assert.Equal(t, "Hello, world", got)
}

func TestBus_AppendChunk_EmitsMergedSuffix(t *testing.T) {
	b := NewBus("run-1")
	b.AppendChunk("Hel")
	b.AppendChunk("lo")

	events := b.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, ChunkData{Text: "Hel"}, events[0].Data)
	assert.Equal(t, ChunkData{Text: "lo"}, events[1].Data)
	assert.Equal(t, "Hello", b.merged.String())
}

func TestBus_Subscribe_LiveDeliveryThenDone(t *testing.T) {
	b := NewBus("run-2")
	sub, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.AppendChunk("hi")
	b.Done()

	var names []EventName
	for ev := range drain(t, sub, 2) {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []EventName{EventChunk, EventDone}, names)
}

func TestBus_Subscribe_AfterDoneReplaysThenCloses(t *testing.T) {
	b := NewBus("run-3")
	b.AppendChunk("hi")
	b.Done()

	sub, unsubscribe := b.Subscribe()
	defer unsubscribe()

	var names []EventName
	for ev := range sub {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []EventName{EventChunk, EventDone}, names)
}

func TestBus_AppendError_MarksDone(t *testing.T) {
	b := NewBus("run-4")
	b.AppendError("boom")

	sub, unsubscribe := b.Subscribe()
	defer unsubscribe()
	ev := <-sub
	assert.Equal(t, EventError, ev.Name)
	_, stillOpen := <-sub
	assert.False(t, stillOpen)
}

func TestRegistry_CreateGetForget(t *testing.T) {
	r := NewRegistry()
	b := r.Create("run-5")
	require.NotNil(t, r.Get("run-5"))
	assert.Same(t, b, r.Get("run-5"))

	r.Forget("run-5")
	assert.Nil(t, r.Get("run-5"))
}

// drain collects n events from ch, giving up after a short deadline so a
// broken producer fails the test instead of hanging it.
func drain(t *testing.T, ch <-chan SseEvent, n int) <-chan SseEvent {
	t.Helper()
	out := make(chan SseEvent, n)
	go func() {
		defer close(out)
		deadline := time.After(2 * time.Second)
		for i := 0; i < n; i++ {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				out <- ev
			case <-deadline:
				return
			}
		}
	}()
	return out
}
