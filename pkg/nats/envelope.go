package nats

import (
	"encoding/json"
	"time"

	"fanova-be/pkg/events"

	"github.com/google/uuid"
)

const streamName = "EVENTS"

// envelope is the JSON body for every message on the EVENTS stream.
type envelope struct {
	Id         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// encode returns the body and the message id JetStream deduplicates on.
func encode(event events.Event) ([]byte, string, error) {
	env := envelope{
		Id:         uuid.NewString(),
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	}
	data, err := json.Marshal(env)
	return data, env.Id, err
}

func decode(data []byte) (events.BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.BaseEvent{}, err
	}
	return events.BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}
