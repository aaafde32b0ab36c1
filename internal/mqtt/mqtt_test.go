package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

func TestFormatPayloadRegisterEvent(t *testing.T) {
	event := logic.FiredEvent{
		Channel:   logic.ChannelRegister,
		Button:    3,
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"button":{"timestamp":"2026-02-02T22:18:12Z","channel":"REGISTER","trigger":"button3","index":3}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadInterruptEvent(t *testing.T) {
	event := logic.FiredEvent{
		Channel:   logic.ChannelInterrupt,
		Action:    logic.ActionShutdown,
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Button.Channel != "INTERRUPT" {
		t.Errorf("channel: got %s", parsed.Button.Channel)
	}
	if parsed.Button.Trigger != "shutdown" {
		t.Errorf("trigger: got %s", parsed.Button.Trigger)
	}
	if parsed.Button.Action != "shutdown" {
		t.Errorf("action: got %s", parsed.Button.Action)
	}
	if parsed.Button.Index != 0 {
		t.Errorf("index should be omitted, got %d", parsed.Button.Index)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := logic.FiredEvent{
		Channel:   logic.ChannelRegister,
		Button:    1,
		Timestamp: time.Date(2026, 2, 2, 23, 0, 0, 0, loc),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Button.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("timestamp should be UTC, got %s", parsed.Button.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "volumio/radio-buttons/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "volumio/radio-buttons/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
	if TopicNotify != "volumio/radio-buttons/notify" {
		t.Errorf("unexpected notify topic: %s", TopicNotify)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
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
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFormatNotifyPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	payload, err := FormatNotifyPayload(at, LevelInfo, "Radio Button", "Playing Button 4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"notify":{"timestamp":"2026-03-01T09:00:00Z","level":"info","title":"Radio Button","message":"Playing Button 4"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	ev := logic.FiredEvent{Channel: logic.ChannelRegister, Button: 2, Timestamp: time.Now()}
	if err := f.Publish(ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Timestamp: time.Now()}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if err := f.Notify(LevelSuccess, "Radio Buttons", "Configuration reloaded"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got := f.Events(); len(got) != 1 || got[0].Button != 2 {
		t.Errorf("events: got %+v", got)
	}
	if len(f.Payloads()) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads()))
	}
	if got := f.SystemEvents(); len(got) != 1 || got[0].Event != "STARTUP" {
		t.Errorf("system events: got %+v", got)
	}
	want := Notification{Level: LevelSuccess, Title: "Radio Buttons", Message: "Configuration reloaded"}
	if got := f.Notifications(); len(got) != 1 || got[0] != want {
		t.Errorf("notifications: got %+v", got)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("publish")
	f.PublishSystemError = errors.New("system")
	f.NotifyError = errors.New("notify")

	if err := f.Publish(logic.FiredEvent{}); err == nil {
		t.Error("expected Publish error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if err := f.Notify(LevelInfo, "t", "m"); err == nil {
		t.Error("expected Notify error")
	}
	if len(f.Events())+len(f.SystemEvents())+len(f.Notifications()) != 0 {
		t.Error("failed calls should not be recorded")
	}
}

func TestFakePublisherResetAndClose(t *testing.T) {
	f := NewFakePublisher()
	f.SetConnected(true)
	f.Publish(logic.FiredEvent{Channel: logic.ChannelRegister, Button: 1})
	f.Close()

	if !f.Closed() || !f.IsConnected() {
		t.Error("expected closed and connected")
	}

	f.Reset()
	if f.Closed() || f.IsConnected() || len(f.Events()) != 0 {
		t.Error("Reset should clear all state")
	}
}

// sendLog records messages sent by a RealPublisher built without a broker.
type sendLog struct {
	mu   sync.Mutex
	msgs []bufferedMsg
	err  error
}

func (s *sendLog) send(msg bufferedMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sendLog) topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		out = append(out, m.topic)
	}
	return out
}

func newTestPublisher(capacity int) (*RealPublisher, *sendLog, *bool) {
	sl := &sendLog{}
	online := false
	p := &RealPublisher{
		buf:       newRingBuffer(capacity),
		send:      sl.send,
		connected: func() bool { return online },
		now:       time.Now,
	}
	return p, sl, &online
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	p, sl, online := newTestPublisher(10)

	ev := logic.FiredEvent{Channel: logic.ChannelRegister, Button: 1, Timestamp: time.Now()}
	if err := p.Publish(ev); err != nil {
		t.Fatalf("Publish offline should buffer, got %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT", Timestamp: time.Now()}); err != nil {
		t.Fatalf("PublishSystem offline should buffer, got %v", err)
	}
	if p.Buffered() != 2 {
		t.Fatalf("buffered: got %d, want 2", p.Buffered())
	}
	if len(sl.topics()) != 0 {
		t.Fatal("nothing should be sent while offline")
	}

	*online = true
	p.flush()

	got := sl.topics()
	if len(got) != 2 || got[0] != Topic || got[1] != TopicSystem {
		t.Errorf("replay order: got %v", got)
	}
	if p.Buffered() != 0 {
		t.Errorf("buffer should be empty after flush, got %d", p.Buffered())
	}
}

func TestRealPublisherNotifyNotBuffered(t *testing.T) {
	p, _, _ := newTestPublisher(10)

	if err := p.Notify(LevelInfo, "Radio Button", "Playing Button 1"); err == nil {
		t.Error("Notify offline should fail")
	}
	if p.Buffered() != 0 {
		t.Errorf("notifications must not be buffered, got %d", p.Buffered())
	}
}

func TestRealPublisherSendsWhenOnline(t *testing.T) {
	p, sl, online := newTestPublisher(10)
	*online = true

	if err := p.Notify(LevelInfo, "Radio Button", "Playing Button 1"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.msgs) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sl.msgs))
	}
	if sl.msgs[0].topic != TopicNotify || sl.msgs[0].qos != 0 {
		t.Errorf("notify message: %+v", sl.msgs[0])
	}
	if sl.msgs[1].topic != TopicSystem || sl.msgs[1].qos != 1 || !sl.msgs[1].retained {
		t.Errorf("system message: %+v", sl.msgs[1])
	}
}

func TestRealPublisherSendFailureBuffers(t *testing.T) {
	p, sl, online := newTestPublisher(10)
	*online = true
	sl.err = errors.New("broker went away")

	if err := p.Publish(logic.FiredEvent{Channel: logic.ChannelRegister, Button: 5}); err == nil {
		t.Error("expected send error")
	}
	if p.Buffered() != 1 {
		t.Errorf("failed event should be buffered, got %d", p.Buffered())
	}
}

func TestRealPublisherFlushRebuffersOnFailure(t *testing.T) {
	p, sl, online := newTestPublisher(10)
	for i := 1; i <= 3; i++ {
		p.Publish(logic.FiredEvent{Channel: logic.ChannelRegister, Button: logic.ButtonIndex(i)})
	}

	*online = true
	sl.err = errors.New("still down")
	p.flush()
	if p.Buffered() != 3 {
		t.Fatalf("all messages should be re-buffered, got %d", p.Buffered())
	}

	sl.err = nil
	p.flush()
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.msgs) != 3 {
		t.Fatalf("expected 3 replayed, got %d", len(sl.msgs))
	}
	for i, msg := range sl.msgs {
		var parsed Payload
		if err := json.Unmarshal(msg.payload, &parsed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if parsed.Button.Index != i+1 {
			t.Errorf("replay %d: got button %d", i, parsed.Button.Index)
		}
	}
}

func TestRealPublisherOverflowKeepsNewest(t *testing.T) {
	p, _, _ := newTestPublisher(2)
	for i := 1; i <= 4; i++ {
		p.Publish(logic.FiredEvent{Channel: logic.ChannelRegister, Button: logic.ButtonIndex(i)})
	}
	if p.Buffered() != 2 {
		t.Errorf("buffered: got %d, want 2", p.Buffered())
	}
}

func TestRealPublisherImplementsInterfaces(t *testing.T) {
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
	var _ Publisher = (*FakePublisher)(nil)
	var _ ConnectionStatus = (*FakePublisher)(nil)
}
