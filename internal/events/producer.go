package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Event types published for downstream dashboards.
const (
	OrderCreated          = "order.created"
	OrderStatusChanged    = "order.status_changed"
	DeliveryStatusChanged = "delivery.status_changed"
	DeliveryPosition      = "delivery.position"
)

type Event struct {
	Type     string         `json:"type"`
	Entity   string         `json:"entity"`
	EntityID uint           `json:"entity_id"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

type Producer interface {
	Publish(ev Event)
	Close() error
}

// --------------------------------------------------
// Kafka (sarama) producer
// --------------------------------------------------

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start Sarama producer: %w", err)
	}

	return &KafkaProducer{producer: producer, topic: topic}, nil
}

// Publish is best-effort: a broker failure is logged, never surfaced to the
// request that produced the event.
func (p *KafkaProducer) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("event marshal failed: %v", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%s:%d", ev.Entity, ev.EntityID)),
		Value: sarama.ByteEncoder(body),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("failed to publish %s event: %v", ev.Type, err)
	}
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}

// --------------------------------------------------
// No-op producer (KAFKA_BROKERS unset)
// --------------------------------------------------

type NopProducer struct{}

func (NopProducer) Publish(Event) {}
func (NopProducer) Close() error  { return nil }

var (
	_ Producer = (*KafkaProducer)(nil)
	_ Producer = NopProducer{}
)
