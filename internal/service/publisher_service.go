package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService puts raw payloads on the in-process job topic.
type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
}

func NewPublisherService(publisher message.Publisher, topicName string) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
	}
}

func (p *publisherService) Publish(_ context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.publisher.Publish(p.topicName, msg)
}
