// Package sink forwards broadcast payloads to external consumers.
package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/san-kum/choreo/internal/broadcast"
)

const (
	StateSuffix  = "/state"
	DefaultQueue = 64
	publishWait  = 2 * time.Second
	connectWait  = 5 * time.Second
	disconnectMs = 250
)

// Publisher is the part of mqtt.Client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Stats struct {
	Published uint64
	Dropped   uint64
	Errors    uint64
}

// MQTTSink publishes every payload to <topic>/state at QoS 0. Handle never
// blocks: payloads are queued for a worker and dropped when the queue is
// full.
type MQTTSink struct {
	pub    Publisher
	client mqtt.Client
	topic  string
	log    zerolog.Logger

	queue     chan broadcast.Payload
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
	errors    atomic.Uint64
}

// Connect dials broker and starts a sink on the returned client.
func Connect(broker, clientID, topic string, log zerolog.Logger) (*MQTTSink, error) {
	log = log.With().Str("component", "mqtt").Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Str("client_id", clientID).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectWait) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	s := New(client, topic, log)
	s.client = client
	return s, nil
}

// New starts a sink over an existing publisher.
func New(pub Publisher, topic string, log zerolog.Logger) *MQTTSink {
	s := &MQTTSink{
		pub:   pub,
		topic: topic + StateSuffix,
		log:   log,
		queue: make(chan broadcast.Payload, DefaultQueue),
		done:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Topic returns the full publish topic.
func (s *MQTTSink) Topic() string { return s.topic }

// Handle is a broadcast.Handler.
func (s *MQTTSink) Handle(p broadcast.Payload) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queue <- p:
	default:
		s.dropped.Add(1)
	}
}

func (s *MQTTSink) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case p := <-s.queue:
			if err := s.publish(p); err != nil {
				s.errors.Add(1)
				s.log.Warn().Err(err).Str("topic", s.topic).Msg("publish failed")
			}
		}
	}
}

func (s *MQTTSink) publish(p broadcast.Payload) error {
	body, err := Encode(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	token := s.pub.Publish(s.topic, 0, false, body)
	if !token.WaitTimeout(publishWait) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}
	s.published.Add(1)
	s.log.Debug().Str("topic", s.topic).Int("size", len(body)).Msg("payload published")
	return nil
}

func (s *MQTTSink) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
		Errors:    s.errors.Load(),
	}
}

// Close stops the worker and disconnects a client opened by Connect.
// Queued payloads that were not yet published are discarded.
func (s *MQTTSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.client != nil && s.client.IsConnected() {
			s.client.Disconnect(disconnectMs)
			s.log.Info().Msg("mqtt disconnected")
		}
	})
	return nil
}

// Encode renders a payload as published on the wire.
func Encode(p broadcast.Payload) ([]byte, error) {
	return json.Marshal(p)
}
