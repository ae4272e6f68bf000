package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/voltmesh/prodsim/core/events"
	"github.com/voltmesh/prodsim/infra/logger"
	"github.com/voltmesh/prodsim/internal/eventbus"
)

// publisher is the subset of Client the progress bridge needs.
type publisher interface {
	Publish(topic string, payload []byte) error
}

// ProgressPublisher bridges driver events from the event bus onto MQTT
// topics under <root>/<run_id>/{state,step,solve}.
type ProgressPublisher struct {
	client publisher
	root   string
	log    logger.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewProgressPublisher returns an unstarted bridge. An empty topic root
// defaults to "prodsim".
func NewProgressPublisher(client publisher, topicRoot string) *ProgressPublisher {
	if topicRoot == "" {
		topicRoot = "prodsim"
	}
	return &ProgressPublisher{client: client, root: topicRoot, log: logger.New("mqtt_progress")}
}

// Start consumes bus events until Stop is called or the bus closes.
func (p *ProgressPublisher) Start(bus *eventbus.Bus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	sub := bus.Subscribe()
	go p.run(bus, sub)
}

func (p *ProgressPublisher) run(bus *eventbus.Bus, sub <-chan eventbus.Event) {
	defer close(p.done)
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-p.stop:
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			p.forward(e)
		}
	}
}

// Stop detaches from the bus and waits for the forwarding loop.
func (p *ProgressPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop = nil
	p.done = nil
}

func (p *ProgressPublisher) forward(e eventbus.Event) {
	var (
		topic   string
		payload any
	)
	switch ev := e.(type) {
	case events.StateEvent:
		topic = p.topic(ev.RunID, "state")
		payload = stateMessage{Simulation: ev.Simulation, From: ev.From, To: ev.To, Time: ev.Time}
	case events.StepEvent:
		topic = p.topic(ev.RunID, "step")
		payload = stepMessage{Step: ev.Step, Time: ev.Time}
	case events.SolveEvent:
		topic = p.topic(ev.RunID, "solve")
		msg := solveMessage{
			Stage:       ev.Stage,
			Step:        ev.Step,
			Status:      ev.Status,
			Objective:   ev.Objective,
			DurationMS:  ev.Duration.Milliseconds(),
			WindowStart: ev.Window.Start,
		}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		payload = msg
	default:
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Errorf("encode %s: %v", topic, err)
		return
	}
	if err := p.client.Publish(topic, body); err != nil {
		p.log.Errorf("publish %s: %v", topic, err)
	}
}

func (p *ProgressPublisher) topic(runID, kind string) string {
	if runID == "" {
		runID = "pending"
	}
	return p.root + "/" + runID + "/" + kind
}

type stateMessage struct {
	Simulation string    `json:"simulation"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Time       time.Time `json:"time"`
}

type stepMessage struct {
	Step int       `json:"step"`
	Time time.Time `json:"time"`
}

type solveMessage struct {
	Stage       string    `json:"stage"`
	Step        int       `json:"step"`
	Status      string    `json:"status,omitempty"`
	Objective   float64   `json:"objective"`
	DurationMS  int64     `json:"duration_ms"`
	WindowStart time.Time `json:"window_start"`
	Error       string    `json:"error,omitempty"`
}
