// Package stream feeds transaction events from Kafka into the memory store.
// It is the production alternative to the built-in simulator: point it at
// the topic your payment gateway publishes to and the loop runs on real
// traffic.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/IBM/sarama"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/memory"
)

// Consumer wraps a sarama consumer group that ingests transaction events
// into the store.
type Consumer struct {
	client sarama.ConsumerGroup
	topic  string
	store  *memory.Store

	ready  chan bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a Kafka consumer feeding the store.
func NewConsumer(brokers []string, groupID, topic string, store *memory.Store) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_8_0_0

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		client: client,
		topic:  topic,
		store:  store,
		ready:  make(chan bool),
	}, nil
}

// Start begins consuming. It blocks until the first rebalance completes,
// then consumption continues in the background until Close or context
// cancellation.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &groupHandler{store: c.store, ready: c.ready}

			if err := c.client.Consume(ctx, []string{c.topic}, handler); err != nil {
				log.Printf("[STREAM] consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			c.ready = make(chan bool)
		}
	}()

	<-c.ready
	log.Printf("[STREAM] consumer ready on topic %q", c.topic)
	return nil
}

// Close stops the consumer gracefully.
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.client.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	store *memory.Store
	ready chan bool
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var event core.TransactionEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				log.Printf("[STREAM] unmarshal transaction event: %v", err)
				session.MarkMessage(message, "")
				continue
			}

			h.store.Ingest([]core.TransactionEvent{event})
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
