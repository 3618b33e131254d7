package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MQTT publishes each notification as a JSON Event on <topic>/<type>.
// Publishing is fire-and-forget; broker trouble is logged, never returned
// to the caller. One goroutine checks delivery of publishes in order.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    zerolog.Logger
	now    func() time.Time

	pending chan pendingPublish
	quit    chan struct{}
	drained chan struct{}
	once    sync.Once
}

type pendingPublish struct {
	topic string
	token mqtt.Token
}

const (
	// Publishes awaiting a delivery check; beyond this they go unchecked.
	maxPending     = 256
	publishTimeout = 5 * time.Second
)

// DialMQTT connects to broker with a random client ID.
func DialMQTT(broker, topic string, log zerolog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("lisat-" + uuid.NewString()).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}
	return NewMQTT(client, topic, log), nil
}

func NewMQTT(client mqtt.Client, topic string, log zerolog.Logger) *MQTT {
	m := &MQTT{
		client:  client,
		topic:   topic,
		log:     log,
		now:     time.Now,
		pending: make(chan pendingPublish, maxPending),
		quit:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go m.drain()
	return m
}

func (m *MQTT) drain() {
	defer close(m.drained)
	for {
		var p pendingPublish
		select {
		case <-m.quit:
			return
		case p = <-m.pending:
		}
		timer := time.NewTimer(publishTimeout)
		select {
		case <-m.quit:
			timer.Stop()
			return
		case <-timer.C:
			m.log.Warn().Str("topic", p.topic).Msg("mqtt publish timed out")
			continue
		case <-p.token.Done():
			timer.Stop()
		}
		if err := p.token.Error(); err != nil {
			m.log.Warn().Err(err).Str("topic", p.topic).Msg("mqtt publish failed")
		}
	}
}

func (m *MQTT) publish(ev Event) {
	ev.Time = m.now()
	body, err := json.Marshal(ev)
	if err != nil {
		m.log.Error().Err(err).Msg("encoding event")
		return
	}
	topic := m.topic + "/" + ev.Type
	retained := ev.Type == TypeStatus || ev.Type == TypeAngle
	token := m.client.Publish(topic, 0, retained, body)
	select {
	case m.pending <- pendingPublish{topic: topic, token: token}:
	default:
		m.log.Debug().Str("topic", topic).Msg("mqtt delivery check skipped")
	}
}

func (m *MQTT) OnLog(msg string, sev Severity) {
	m.publish(Event{Type: TypeLog, Message: msg, Severity: sev})
}

func (m *MQTT) OnStatus(msg string, sev Severity) {
	m.publish(Event{Type: TypeStatus, Message: msg, Severity: sev})
}

func (m *MQTT) OnConnected(device string) {
	m.publish(Event{Type: TypeConnected, Device: device, Severity: Success})
}

func (m *MQTT) OnDisconnected() {
	m.publish(Event{Type: TypeDisconnected, Severity: Error})
}

func (m *MQTT) OnAngleConfirmed(angle int) {
	m.publish(Event{Type: TypeAngle, Angle: &angle, Severity: Info})
}

// Close disconnects from the broker, allowing in-flight messages 250ms.
func (m *MQTT) Close() {
	m.once.Do(func() {
		m.client.Disconnect(250)
		close(m.quit)
	})
	<-m.drained
}
