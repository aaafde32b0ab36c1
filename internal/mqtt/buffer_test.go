package mqtt

import (
	"testing"
)

func pushN(rb *ringBuffer, from, n int) {
	for i := from; i < from+n; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}
}

func payloadBytes(msgs []bufferedMsg) []byte {
	out := make([]byte, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(4)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d messages", len(got))
	}
	if rb.dropped != 0 {
		t.Errorf("dropped: got %d, want 0", rb.dropped)
	}
}

func TestRingBufferKeepsNewest(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		pushed      int
		wantLen     int
		wantDropped int
		want        []byte
	}{
		{"partial", 10, 5, 5, 0, []byte{0, 1, 2, 3, 4}},
		{"exactly full", 4, 4, 4, 0, []byte{0, 1, 2, 3}},
		{"one over", 4, 5, 4, 1, []byte{1, 2, 3, 4}},
		{"wrapped twice", 3, 8, 3, 5, []byte{5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			pushN(rb, 0, tt.pushed)

			if rb.len() != tt.wantLen {
				t.Errorf("len: got %d, want %d", rb.len(), tt.wantLen)
			}
			if rb.dropped != tt.wantDropped {
				t.Errorf("dropped: got %d, want %d", rb.dropped, tt.wantDropped)
			}

			got := payloadBytes(rb.drainAll())
			if string(got) != string(tt.want) {
				t.Errorf("drained %v, want %v", got, tt.want)
			}
			if rb.len() != 0 || rb.dropped != 0 {
				t.Errorf("after drain: len=%d dropped=%d, want 0/0", rb.len(), rb.dropped)
			}
		})
	}
}

func TestRingBufferDropCountResetsBetweenOutages(t *testing.T) {
	rb := newRingBuffer(3)

	// First outage overflows.
	pushN(rb, 0, 5)
	if rb.dropped != 2 {
		t.Fatalf("first outage dropped: got %d, want 2", rb.dropped)
	}
	if got := payloadBytes(rb.drainAll()); string(got) != string([]byte{2, 3, 4}) {
		t.Errorf("first outage drained %v", got)
	}

	// Second outage fits, so nothing is reported dropped.
	pushN(rb, 20, 2)
	if rb.dropped != 0 {
		t.Errorf("second outage dropped: got %d, want 0", rb.dropped)
	}
	if got := payloadBytes(rb.drainAll()); string(got) != string([]byte{20, 21}) {
		t.Errorf("second outage drained %v", got)
	}

	// Third outage overflows again and counts from zero.
	pushN(rb, 40, 4)
	if rb.dropped != 1 {
		t.Errorf("third outage dropped: got %d, want 1", rb.dropped)
	}
	if got := payloadBytes(rb.drainAll()); string(got) != string([]byte{41, 42, 43}) {
		t.Errorf("third outage drained %v", got)
	}
}

func TestRingBufferPreservesSystemMessage(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"system":{"event":"HEARTBEAT"}}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || m.qos != 1 || !m.retained {
		t.Errorf("got topic=%s qos=%d retained=%v", m.topic, m.qos, m.retained)
	}
	if string(m.payload) != `{"system":{"event":"HEARTBEAT"}}` {
		t.Errorf("payload: got %s", m.payload)
	}
}
