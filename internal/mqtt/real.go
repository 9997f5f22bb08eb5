package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Buffer   int // messages held while disconnected
}

// publishTimeout bounds the wait for a broker acknowledgement.
const publishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge a
// message in time. The message is not retried.
var ErrPublishTimeout = errors.New("publish timeout")

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, when it
// comes back.
type RealPublisher struct {
	client paho.Client
	log    *zap.Logger

	mu       sync.Mutex
	buf      *ringBuffer
	connects int
}

// NewRealPublisher creates a publisher for the given broker. It returns
// immediately; the client keeps retrying in the background until the broker
// is reachable.
func NewRealPublisher(o Options, log *zap.Logger) *RealPublisher {
	p := newPublisher(o.Buffer, log)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, WillPayload(), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(buffer int, log *zap.Logger) *RealPublisher {
	log = log.Named("mqtt")
	return &RealPublisher{
		log: log,
		buf: newRingBuffer(buffer, log),
	}
}

// Publish sends a state transition to the MQTT broker.
func (p *RealPublisher) Publish(event TransitionEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once): lifecycle events must arrive
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// send publishes msg, or buffers it when the connection is down. A message
// that times out is dropped and the timeout reported; paho may still deliver
// it, so it is not replayed.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: %w", msg.topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.log.Info("connected", zap.Bool("reconnect", reconnect), zap.Int("replay", len(pending)))

	for _, msg := range pending {
		token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if token.WaitTimeout(publishTimeout) && token.Error() == nil {
			continue
		}
		p.log.Warn("replay failed", zap.String("topic", msg.topic), zap.Error(token.Error()))
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("connection lost", zap.Error(err))
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
