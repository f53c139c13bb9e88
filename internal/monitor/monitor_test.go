package monitor

import (
	"testing"
	"time"
)

func TestTrackSubscribeAppendDeliversBufferedEvents(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")

	m.Append("job-1", "processing", 0.2, time.Now())
	m.Append("job-1", "processing", 0.5, time.Now())

	events, _, done, found := m.Subscribe("job-1", 0)
	if !found {
		t.Fatal("expected job-1 to be found")
	}
	if done {
		t.Fatal("expected job-1 to not be done yet")
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(events))
	}
	if events[0].Seq != 0 || events[1].Seq != 1 {
		t.Fatalf("expected sequential seq numbers, got %d, %d", events[0].Seq, events[1].Seq)
	}
}

func TestSubscribeUnknownJobNotFound(t *testing.T) {
	m := New(nil, nil, nil, nil)
	_, _, _, found := m.Subscribe("missing", 0)
	if found {
		t.Fatal("expected missing job to not be found")
	}
}

func TestAppendDiscardsBackwardProgress(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")

	m.Append("job-1", "processing", 0.6, time.Now())
	m.Append("job-1", "processing", 0.3, time.Now()) // would move progress backward

	events, _, _, _ := m.Subscribe("job-1", 0)
	if len(events) != 1 {
		t.Fatalf("expected the backward update to be dropped, got %d events", len(events))
	}
	if events[0].Progress != 0.6 {
		t.Fatalf("expected progress to remain at 0.6, got %f", events[0].Progress)
	}
}

func TestSubscribeFromMidpointReturnsOnlyNewEvents(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")
	m.Append("job-1", "processing", 0.2, time.Now())
	m.Append("job-1", "processing", 0.5, time.Now())
	m.Append("job-1", "processing", 0.8, time.Now())

	events, _, _, _ := m.Subscribe("job-1", 2)
	if len(events) != 1 {
		t.Fatalf("expected 1 event from seq 2 onward, got %d", len(events))
	}
	if events[0].Progress != 0.8 {
		t.Fatalf("expected the last event's progress, got %f", events[0].Progress)
	}
}

func TestCompleteMarksDoneAndNotifiesSubscribers(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")
	_, notify, _, _ := m.Subscribe("job-1", 0)

	m.Complete("job-1")

	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("expected the notify channel to close on completion")
	}

	_, _, done, found := m.Subscribe("job-1", 0)
	if !found || !done {
		t.Fatal("expected job-1 to be found and marked done")
	}
}

func TestAppendNotifiesWaitingSubscribers(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")
	_, notify, _, _ := m.Subscribe("job-1", 0)

	m.Append("job-1", "processing", 0.5, time.Now())

	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("expected the notify channel to close on new progress")
	}
}

func TestUntrackRemovesTheJobEntry(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Track("job-1")
	m.Untrack("job-1")

	_, _, _, found := m.Subscribe("job-1", 0)
	if found {
		t.Fatal("expected job-1 to be gone after untrack")
	}
}

func TestAppendOnUntrackedJobIsANoOp(t *testing.T) {
	m := New(nil, nil, nil, nil)
	m.Append("never-tracked", "processing", 0.5, time.Now()) // must not panic
}
