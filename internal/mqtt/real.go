package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// BufferSize is the number of messages held while the broker is unreachable.
const BufferSize = 100

const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker. Events published while
// disconnected are buffered and replayed, oldest first, on reconnect.
// Notifications are never buffered: a stale toast is worse than none.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	buf       *ringBuffer
	send      func(msg bufferedMsg) error
	connected func() bool
	now       func() time.Time
}

// NewRealPublisher creates a publisher for the given broker. The initial
// connection is retried in the background, so an unreachable broker is not
// an error. onConnChange, if set, is called on every connect and disconnect.
func NewRealPublisher(broker, clientID string, onConnChange func(bool)) (*RealPublisher, error) {
	p := &RealPublisher{
		buf: newRingBuffer(BufferSize),
		now: time.Now,
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			if onConnChange != nil {
				onConnChange(true)
			}
			go p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
			if onConnChange != nil {
				onConnChange(false)
			}
		})

	p.client = paho.NewClient(opts)
	p.send = p.publishClient
	p.connected = p.client.IsConnectionOpen

	token := p.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	return p, nil
}

func (p *RealPublisher) publishClient(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// deliver sends msg now, or buffers it if the broker is unreachable and
// buffered is set.
func (p *RealPublisher) deliver(msg bufferedMsg, buffered bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected() {
		if buffered {
			p.buf.push(msg)
			return nil
		}
		return fmt.Errorf("publish %s: not connected", msg.topic)
	}

	if err := p.send(msg); err != nil {
		if buffered {
			p.buf.push(msg)
		}
		return err
	}
	return nil
}

// flush replays buffered messages. Messages that fail again are re-buffered
// in their original order.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending := p.buf.drainAll()
	if len(pending) == 0 {
		return
	}
	log.Printf("mqtt: replaying %d buffered messages", len(pending))
	for i, msg := range pending {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: replay failed: %v", err)
			for _, rest := range pending[i:] {
				p.buf.push(rest)
			}
			return
		}
	}
}

// Publish sends a fired button event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.FiredEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.deliver(bufferedMsg{topic: Topic, payload: payload}, true)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.deliver(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, true)
}

// Notify sends a UI toast. It is dropped if the broker is unreachable.
func (p *RealPublisher) Notify(level, title, message string) error {
	payload, err := FormatNotifyPayload(p.now(), level, title, message)
	if err != nil {
		return fmt.Errorf("format notify payload: %w", err)
	}
	return p.deliver(bufferedMsg{topic: TopicNotify, payload: payload}, false)
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.connected()
}

// Buffered returns the number of messages waiting for reconnection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.Printf("mqtt: closing with %d unsent messages", n)
	}
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
