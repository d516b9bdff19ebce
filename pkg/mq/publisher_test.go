package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"habittracker/pkg/trace"
)

func TestNewMessage(t *testing.T) {
	body := json.RawMessage(`{"habit_id":7}`)

	msg := newMessage(context.Background(), body)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, []byte(body), msg.Body)
	assert.Nil(t, msg.Headers)

	ctx := trace.WithContext(context.Background(), "abc")
	msg = newMessage(ctx, body)
	assert.Equal(t, "abc", msg.Headers[TraceHeader])
}

func TestPublish_NotConnected(t *testing.T) {
	var p *Publisher
	assert.False(t, p.IsConnected())

	err := (&Publisher{}).Publish(context.Background(), "habit.created", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}
