package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/infra/logger"
)

const publishTimeout = 5 * time.Second

// Event is the payload published on <prefix>/events for every notification.
type Event struct {
	MessageID string        `json:"message_id"`
	Seq       uint64        `json:"seq"`
	Kind      dispatch.Kind `json:"kind"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id,omitempty"`
	CarrierID string        `json:"carrier_id,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// State is the retained payload on <prefix>/state.
type State struct {
	Seq      uint64                  `json:"seq"`
	Carriers []model.CarrierSnapshot `json:"carriers"`
	Requests []model.RequestSnapshot `json:"requests"`
}

// StatusPublisher is a dispatch.Observer mirroring engine notifications to
// MQTT. Notify never blocks: notifications are queued and published by a
// single goroutine, and dropped when the queue is full.
type StatusPublisher struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger

	events chan dispatch.Notification
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
	lastSeq uint64
}

// NewStatusPublisher connects to the broker and starts publishing.
func NewStatusPublisher(cfg Config, log logger.Logger) (*StatusPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt_publisher")
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p := &StatusPublisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
		events:     make(chan dispatch.Notification, cfg.BufferSize),
		done:       make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Notify queues n for publication.
func (p *StatusPublisher) Notify(n dispatch.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- n:
	default:
		p.dropped++
		p.logger.Warnf("publish queue full, dropping notification %d", n.Seq)
	}
}

// Dropped returns how many notifications were discarded on a full queue.
func (p *StatusPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close publishes what is still queued and disconnects.
func (p *StatusPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.done
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

func (p *StatusPublisher) run() {
	defer close(p.done)
	for n := range p.events {
		if err := p.publish(n); err != nil {
			p.logger.Errorf("publish notification %d: %v", n.Seq, err)
		}
	}
}

func (p *StatusPublisher) publish(n dispatch.Notification) error {
	ev := Event{
		MessageID: uuid.NewString(),
		Seq:       n.Seq,
		Kind:      n.Kind,
		Message:   n.Message,
		RequestID: n.RequestID,
		CarrierID: n.CarrierID,
		Timestamp: n.Time.UnixMilli(),
	}
	if err := p.send(p.prefix+"/events", "events", false, ev); err != nil {
		return err
	}
	// Observers may see notifications out of order; the retained state only
	// moves forward.
	if n.Seq <= p.lastSeq {
		return nil
	}
	p.lastSeq = n.Seq
	st := State{Seq: n.Seq, Carriers: n.Carriers, Requests: n.Requests}
	if err := p.send(p.prefix+"/state", "state", true, st); err != nil {
		return err
	}
	for _, c := range n.Carriers {
		if c.ID != n.CarrierID {
			continue
		}
		if err := p.send(fmt.Sprintf("%s/carriers/%s", p.prefix, c.ID), "state", true, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *StatusPublisher) send(topic, kind string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	qos := p.qos[kind]
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		if !token.WaitTimeout(publishTimeout) {
			publishErr = fmt.Errorf("publish to %s timed out", topic)
		} else {
			publishErr = token.Error()
		}
		if publishErr == nil {
			p.logger.Debugf("published to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}
