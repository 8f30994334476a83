package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// Kafka publishes every message as a JSON order event keyed by order id, so all
// events for one order land on the same partition.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	return sarama.NewSyncProducer(brokers, config)
}

func NewKafka(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (c *Kafka) Name() string { return "kafka" }

type orderEvent struct {
	Message
	OccurredAt time.Time `json:"occurredAt"`
}

func (c *Kafka) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(orderEvent{Message: msg, OccurredAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, _, err = c.producer.SendMessage(&sarama.ProducerMessage{
		Topic: c.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(msg.OrderID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(msg.Event)},
		},
	})
	return err
}

func (c *Kafka) Close() error {
	return c.producer.Close()
}
