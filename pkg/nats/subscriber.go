package nats

import (
	"context"
	"fmt"
	"log"
	"time"

	"fanova-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const maxRedeliveryDelay = 5 * time.Minute

// redeliveryDelay doubles from 5s per attempt.
func redeliveryDelay(attempt uint64) time.Duration {
	d := 5 * time.Second
	for i := uint64(1); i < attempt && d < maxRedeliveryDelay; i++ {
		d *= 2
	}
	return min(d, maxRedeliveryDelay)
}

type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber consumes the EVENTS stream through durable consumers.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	contexts []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers handler for subject. Messages are acked only when handler returns nil.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decode(msg.Data())
		if err != nil {
			log.Printf("Error unmarshalling event on %s: %v", msg.Subject(), err)
			// A malformed body will never parse; do not redeliver it.
			_ = msg.Term()
			return
		}

		if err := handler(ctx, event); err != nil {
			attempt := uint64(1)
			if meta, merr := msg.Metadata(); merr == nil {
				attempt = meta.NumDelivered
			}
			log.Printf("Handler failed for event %s (delivery %d): %v", msg.Subject(), attempt, err)
			_ = msg.NakWithDelay(redeliveryDelay(attempt))
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.contexts = append(s.contexts, cc)
	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.contexts {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
