// Package kafka is a Kafka-backed events.Sink, grounded on the teacher's
// pubsub/kafka.Events, using github.com/Shopify/sarama's synchronous
// producer to publish one message per event onto a topic named after the
// remote interface.
package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/f0mster/rmi/pkg/events"
)

type Sink struct {
	producer sarama.SyncProducer
	client   sarama.Client
}

func New(config *sarama.Config, brokers []string) (*Sink, error) {
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("events/kafka: client create: %w", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, fmt.Errorf("events/kafka: producer create: %w", err)
	}
	return &Sink{producer: producer, client: client}, nil
}

func (s *Sink) Close() error {
	if err := s.producer.Close(); err != nil {
		return err
	}
	return s.client.Close()
}

type wireEvent struct {
	Type    string `json:"type"`
	Method  string `json:"method"`
	Address string `json:"address"`
	Err     string `json:"err,omitempty"`
}

// Publish never returns or propagates an error, per package events's
// contract: a send failure is dropped. The send is synchronous on the
// caller's goroutine, so it takes as long as the broker takes to answer.
func (s *Sink) Publish(evt events.Event) {
	we := wireEvent{Type: string(evt.Type), Method: evt.Method, Address: evt.Address}
	if evt.Err != nil {
		we.Err = evt.Err.Error()
	}
	payload, err := json.Marshal(we)
	if err != nil {
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: "rmi." + evt.Interface,
		Value: sarama.ByteEncoder(payload),
	}
	_, _, _ = s.producer.SendMessage(msg)
}
