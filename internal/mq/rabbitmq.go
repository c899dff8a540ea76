package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookshelf-app/server/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const jsonContentType = "application/json"

// RabbitMQClient fans notices out through a topic exchange. The channel name
// is the routing key and every watcher binds its own exclusive queue.
type RabbitMQClient struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	now      func() time.Time
}

// NewRabbitMQClient dials the broker and declares the exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	switch {
	case strings.TrimSpace(cfg.URL) == "":
		return nil, errors.New("rabbitmq url is required")
	case strings.TrimSpace(cfg.Exchange) == "":
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	// durable, not auto-deleted, not internal, wait for confirmation
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	return &RabbitMQClient{conn: conn, ch: ch, exchange: cfg.Exchange, now: time.Now}, nil
}

// Publish routes data to every queue bound to channel.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	id := uuid.NewString()
	msg := amqp.Publishing{
		ContentType: jsonContentType,
		MessageId:   id,
		Timestamp:   r.now(),
		Headers:     attributesToHeaders(attrs),
		Body:        data,
	}
	if err := r.ch.PublishWithContext(ctx, r.exchange, channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %q: %w", channel, err)
	}
	return id, nil
}

// Subscribe consumes from a private queue bound to channel until ctx ends.
// Handler failures drop the message, since a notice is only useful once.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	deliveries, tag, err := r.bindWatcher(channel)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.ch.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{ID: d.MessageId, Data: d.Body, Attributes: headersToAttributes(d.Headers)}
			if err := handler(ctx, msg); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// bindWatcher declares a server-named exclusive queue and starts consuming.
func (r *RabbitMQClient) bindWatcher(channel string) (<-chan amqp.Delivery, string, error) {
	queue, err := r.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, "", fmt.Errorf("declare watcher queue: %w", err)
	}
	if err := r.ch.QueueBind(queue.Name, channel, r.exchange, false, nil); err != nil {
		return nil, "", fmt.Errorf("bind %q: %w", channel, err)
	}

	tag := "watch-" + uuid.NewString()
	deliveries, err := r.ch.Consume(queue.Name, tag, false, true, false, false, nil)
	if err != nil {
		return nil, "", fmt.Errorf("consume %q: %w", queue.Name, err)
	}
	return deliveries, tag, nil
}

// Close closes the channel and then the connection.
func (r *RabbitMQClient) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func attributesToHeaders(attrs map[string]string) amqp.Table {
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	return headers
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for k, v := range headers {
		switch s := v.(type) {
		case string:
			attrs[k] = s
		case []byte:
			attrs[k] = string(s)
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	return attrs
}
