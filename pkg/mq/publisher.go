package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"habittracker/pkg/trace"
)

// TraceHeader carries the trace id on published messages.
const TraceHeader = "trace_id"

var ErrNotConnected = errors.New("mq publisher is not connected")

// Publisher owns one connection and one channel. Publishing is serialized
// because an amqp channel must not be used from several goroutines at once.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) IsConnected() bool {
	if p == nil || p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// Publish sends body to the exchange as a persistent JSON message. The
// trace id in ctx, if any, travels as a header.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body json.RawMessage) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	return p.publish(ctx, routingKey, newMessage(ctx, body))
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
}

func newMessage(ctx context.Context, body json.RawMessage) amqp091.Publishing {
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		msg.Headers = amqp091.Table{TraceHeader: traceID}
	}
	return msg
}
