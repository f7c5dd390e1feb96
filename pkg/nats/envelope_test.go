package nats

import (
	"testing"
	"time"

	"fanova-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	evt := events.New(events.TypeUserBanned, map[string]interface{}{"email": "a@b.co"})

	data, id, err := encode(evt)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeUserBanned, got.EventType())
	assert.Equal(t, "a@b.co", got.Payload()["email"])
	assert.WithinDuration(t, evt.Timestamp(), got.Timestamp(), time.Millisecond)

	_, other, _ := encode(evt)
	assert.NotEqual(t, id, other)
}

func TestRedeliveryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, redeliveryDelay(1))
	assert.Equal(t, 10*time.Second, redeliveryDelay(2))
	assert.Equal(t, 40*time.Second, redeliveryDelay(4))
	assert.Equal(t, maxRedeliveryDelay, redeliveryDelay(50))
}
