package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testEvent(success bool) Event {
	return Event{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		EventType: "login_success",
		UserID:    "u1",
		Login:     "alice@example.com",
		Success:   success,
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(sink, 8, false)
	defer d.Close()

	d.Record(context.Background(), testEvent(true))

	select {
	case got := <-sink.Events():
		if got.EventType != "login_success" || got.UserID != "u1" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Record(context.Background(), testEvent(true))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestRecordStampsZeroTimestamp(t *testing.T) {
	sink := NewChannelSink(2)
	d := NewDispatcher(sink, 2, false)
	defer d.Close()

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	d.now = func() time.Time { return fixed }

	d.Record(context.Background(), Event{EventType: "login_failure"})
	if got := <-sink.Events(); !got.Timestamp.Equal(fixed) || got.Timestamp.Location() != time.UTC {
		t.Fatalf("zero timestamp not stamped in UTC: %v", got.Timestamp)
	}

	// A caller-supplied timestamp passes through untouched.
	d.Record(context.Background(), testEvent(true))
	if got := <-sink.Events(); !got.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("caller timestamp rewritten: %v", got.Timestamp)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that never drains while we flood the buffer.
	blocked := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-blocked })

	d := NewDispatcher(sink, 1, true)
	defer func() {
		close(blocked)
		d.Close()
	}()

	for i := 0; i < 10; i++ {
		d.Record(context.Background(), testEvent(true))
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}
}

func TestCloseDrainsBuffer(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	d := NewDispatcher(sink, 16, false)

	for i := 0; i < 5; i++ {
		d.Record(context.Background(), testEvent(true))
	}
	d.Close()

	lines := strings.Count(buf.String(), "\n")
	if lines != 5 {
		t.Fatalf("expected 5 drained events, got %d", lines)
	}
}

func TestRecordAfterCloseIsDiscarded(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(sink, 8, false)
	d.Close()
	d.Close() // idempotent

	d.Record(context.Background(), testEvent(true))
	select {
	case got := <-sink.Events():
		t.Fatalf("event delivered after close: %+v", got)
	default:
	}
}

func TestJSONWriterSinkShape(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), testEvent(false))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["event_type"] != "login_success" {
		t.Fatalf("unexpected event_type %v", decoded["event_type"])
	}
	if decoded["success"] != false {
		t.Fatal("success flag lost")
	}
	if _, ok := decoded["error"]; ok {
		t.Fatal("empty error must be omitted")
	}
}

func TestZerologSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sink := NewZerologSink(logger)

	sink.Emit(context.Background(), testEvent(true))
	sink.Emit(context.Background(), testEvent(false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"info"`) {
		t.Fatalf("success not logged at info: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) {
		t.Fatalf("failure not logged at warn: %s", lines[1])
	}
	if !strings.Contains(lines[0], `"message":"login_success"`) {
		t.Fatalf("event type not used as message: %s", lines[0])
	}
}

type sinkFunc func(context.Context, Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
