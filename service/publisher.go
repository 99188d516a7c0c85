package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dohoonk/roomdetect/floorplan"
)

// DefaultPublishPrefix is used when mqtt.publishPrefix is not set.
const DefaultPublishPrefix = "roomdetect"

// RoomsMessage is the payload of {prefix}/{source}/rooms.
type RoomsMessage struct {
	Source    string             `json:"source"`
	RunID     string             `json:"runId"`
	Rooms     []floorplan.Room   `json:"rooms"`
	Metrics   Metrics            `json:"metrics"`
	Strategy  floorplan.Strategy `json:"strategy"`
	Timestamp int64              `json:"timestamp"`
}

// SourceSummary is one entry of the {prefix}/summary payload.
type SourceSummary struct {
	Source     string  `json:"source"`
	RunID      string  `json:"runId"`
	RoomsCount int     `json:"roomsCount"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Publisher publishes detection runs to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	summaries     map[string]SourceSummary
	mu            sync.RWMutex
}

// NewPublisher creates a new run publisher. prefix falls back to
// DefaultPublishPrefix. If client is nil, publishing is disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true, // late subscribers get the latest rooms
		summaries:     make(map[string]SourceSummary),
	}
}

// RoomsTopic returns the topic rooms of source are published to.
func (p *Publisher) RoomsTopic(source string) string {
	return fmt.Sprintf("%s/%s/rooms", p.publishPrefix, source)
}

// SummaryTopic returns the combined summary topic.
func (p *Publisher) SummaryTopic() string {
	return p.publishPrefix + "/summary"
}

// PublishRun publishes a run to its source topic and refreshes the summary.
func (p *Publisher) PublishRun(run *Run) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	msg := RoomsMessage{
		Source:    run.Source,
		RunID:     run.ID,
		Rooms:     run.Rooms,
		Metrics:   run.Metrics,
		Strategy:  run.Strategy,
		Timestamp: run.CreatedAt.Unix(),
	}
	if err := p.publishJSON(p.RoomsTopic(run.Source), msg); err != nil {
		return err
	}

	p.mu.Lock()
	p.summaries[run.Source] = SourceSummary{
		Source:     run.Source,
		RunID:      run.ID,
		RoomsCount: run.Metrics.RoomsCount,
		Confidence: run.Metrics.ConfidenceScore,
		Timestamp:  msg.Timestamp,
	}
	p.mu.Unlock()

	log.Printf("[MQTT] published %d rooms for %s", len(run.Rooms), run.Source)
	return p.publishSummary()
}

func (p *Publisher) publishSummary() error {
	summaries := p.Summaries()
	message := map[string]interface{}{
		"sources":   summaries,
		"timestamp": time.Now().Unix(),
	}
	return p.publishJSON(p.SummaryTopic(), message)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// Summaries returns the last summary of every published source, sorted by source
func (p *Publisher) Summaries() []SourceSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]SourceSummary, 0, len(p.summaries))
	for _, s := range p.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
