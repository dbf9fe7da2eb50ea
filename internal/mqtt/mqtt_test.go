package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/interlock-panel/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventSimulationApplied,
		Line:      "dPhase",
		State:     "SIM_ON",
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"panel":{"timestamp":"2026-02-02T22:18:12Z","event":"SIMULATION_APPLIED","line":"dPhase","state":"SIM_ON"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadEventTypes(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		event      logic.Event
		wantEvent  string
		wantSource string
	}{
		{logic.Event{Timestamp: ts, Type: logic.EventResetPulse, Line: "Reset", Source: logic.SourceManual}, "RESET_PULSE", "manual"},
		{logic.Event{Timestamp: ts, Type: logic.EventResetPulse, Line: "Reset", Source: logic.SourceAuto}, "RESET_PULSE", "auto"},
		{logic.Event{Timestamp: ts, Type: logic.EventFaultArmed, Line: "Global"}, "FAULT_ARMED", ""},
		{logic.Event{Timestamp: ts, Type: logic.EventSettingsErased}, "SETTINGS_ERASED", ""},
	}

	for _, tt := range tests {
		t.Run(tt.wantEvent+tt.wantSource, func(t *testing.T) {
			payload, err := FormatPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Panel.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Panel.Event, tt.wantEvent)
			}
			if parsed.Panel.Source != tt.wantSource {
				t.Errorf("source: got %q, want %q", parsed.Panel.Source, tt.wantSource)
			}
		})
	}
}

func TestFormatPayloadOmitsEmptyFields(t *testing.T) {
	payload, err := FormatPayload(logic.Event{
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Type:      logic.EventSettingsErased,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, k := range []string{"line", "state", "source"} {
		if _, ok := parsed["panel"][k]; ok {
			t.Errorf("expected %q omitted, got %s", k, payload)
		}
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	payload, err := FormatPayload(logic.Event{
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, cet),
		Type:      logic.EventFaultArmed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Panel.Timestamp != "2026-03-01T09:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Panel.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "interlock/panel/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "interlock/panel/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadReconnectedOmitsReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT","panel":{}}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload returned as is, got %s", payload)
	}
}

func TestSystemMessageQoSAndRetain(t *testing.T) {
	m, err := systemMessage(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.topic != TopicSystem || m.qos != 1 || !m.retained {
		t.Errorf("unexpected system message: %+v", m)
	}

	e, err := eventMessage(logic.Event{Timestamp: time.Now(), Type: logic.EventResetPulse})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.topic != Topic || e.qos != 0 || e.retained {
		t.Errorf("unexpected event message: %+v", e)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	event := logic.Event{Timestamp: time.Now(), Type: logic.EventResetPulse, Source: logic.SourceAuto}

	if err := f.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Events) != 1 || f.Events[0] != event {
		t.Errorf("expected event recorded, got %+v", f.Events)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}

	f.PublishError = errors.New("broker down")
	if err := f.Publish(event); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 1 {
		t.Errorf("expected failed publish not recorded, got %d events", len(f.Events))
	}

	f.Close()
	if !f.Closed {
		t.Error("expected Closed")
	}
}

// waitSent polls until n messages reached the fake.
func waitSent(t *testing.T, f *FakePublisher, n int) []SentMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.SentMessages(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", n, len(f.SentMessages()))
	return nil
}

func TestQueueDeliversInOrder(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 16, nil)
	defer q.Close()

	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true})
	q.Publish(logic.Event{Timestamp: ts, Type: logic.EventFaultArmed, Line: "Global"})
	q.Publish(logic.Event{Timestamp: ts, Type: logic.EventResetPulse, Source: logic.SourceAuto})

	got := waitSent(t, f, 3)
	if got[0].Topic != TopicSystem || got[0].QoS != 1 || !got[0].Retained {
		t.Errorf("expected retained STARTUP on the system topic first, got %+v", got[0])
	}
	var p Payload
	if err := json.Unmarshal(got[2].Payload, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Panel.Event != "RESET_PULSE" {
		t.Errorf("expected RESET_PULSE last, got %s", p.Panel.Event)
	}
}

func TestQueueRetriesAfterSendError(t *testing.T) {
	f := NewFakePublisher()
	f.SetSendError(errors.New("not connected"))
	q := newQueue(f, 16, 5*time.Millisecond, nil)
	defer q.Close()

	q.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventSettingsErased})
	time.Sleep(20 * time.Millisecond)
	if n := len(f.SentMessages()); n != 0 {
		t.Fatalf("expected nothing sent while failing, got %d", n)
	}

	f.SetSendError(nil)
	q.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventFaultArmed})

	got := waitSent(t, f, 2)
	var first Payload
	if err := json.Unmarshal(got[0].Payload, &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.Panel.Event != "SETTINGS_ERASED" {
		t.Errorf("expected the failed message delivered first, got %s", first.Panel.Event)
	}
}

func TestQueueCloseFlushesAndRefuses(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 16, nil)

	q.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventResetPulse})
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if n := len(f.SentMessages()); n != 1 {
		t.Errorf("expected the queued message flushed on close, got %d", n)
	}
	if err := q.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventResetPulse}); err == nil {
		t.Error("expected publish after close to fail")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}

func TestQueueIsConnectedFollowsSender(t *testing.T) {
	f := NewFakePublisher()
	q := NewQueue(f, 4, nil)
	defer q.Close()

	if !q.IsConnected() {
		t.Error("expected connected")
	}
	f.mu.Lock()
	f.Connected = false
	f.mu.Unlock()
	if q.IsConnected() {
		t.Error("expected disconnected")
	}
}
