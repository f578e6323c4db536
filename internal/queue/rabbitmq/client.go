package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	envConfig "github.com/Kseniia567/fraud-detection-ADD/internal/config"
	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

const contentTypeJSON = "application/json"

// Client represents a RabbitMQ connection with one confirm-mode publishing
// channel and one channel per consumer.
type Client struct {
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	pubMu  sync.Mutex
	config envConfig.RabbitMQ
	log    *zap.Logger

	mu       sync.Mutex
	channels []*amqp.Channel
	closed   bool
}

// NewClient dials the broker and opens the publishing channel.
func NewClient(ctx context.Context, cfg envConfig.RabbitMQ, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to RabbitMQ",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("vhost", cfg.VHost))

	conn, err := amqp.DialConfig(cfg.URL(), amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(cfg.DialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to RabbitMQ: %w", domain.ErrConnectionLost, err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open publishing channel: %w", err)
	}

	if err := pubCh.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Info("RabbitMQ connection established successfully")

	return &Client{
		conn:   conn,
		pubCh:  pubCh,
		config: cfg,
		log:    log,
	}, nil
}

// DeclareTopology declares the exchange, the durable queues and their
// bindings, plus a dead-letter queue per bound queue.
func (c *Client) DeclareTopology(t queue.Topology) error {
	if t.DeadLetterExchange == "" {
		return errors.New("dead-letter exchange must be set")
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if err := c.pubCh.ExchangeDeclare(t.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}

	for _, b := range t.Bindings {
		if _, err := c.pubCh.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
		}
		if err := c.pubCh.QueueBind(b.Queue, b.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", b.Queue, b.RoutingKey, err)
		}
	}

	if err := c.pubCh.ExchangeDeclare(t.DeadLetterExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange %s: %w", t.DeadLetterExchange, err)
	}
	for _, q := range t.Queues() {
		dead := queue.DeadLetterQueue(q)
		if _, err := c.pubCh.QueueDeclare(dead, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", dead, err)
		}
		if err := c.pubCh.QueueBind(dead, q, t.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", dead, err)
		}
	}

	c.log.Info("RabbitMQ topology declared",
		zap.String("exchange", t.Exchange),
		zap.Strings("queues", t.Queues()))

	return nil
}

// Publish sends a persistent JSON message and waits for the broker confirm.
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, msg queue.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.PublishTimeout)
	defer cancel()

	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	confirm, err := c.pubCh.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, newPublishing(msg, time.Now()))
	if err != nil {
		return c.publishError(err, exchange, routingKey, msg.ID)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for publish confirm of message %s: %w", msg.ID, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected message %s for %s/%s", msg.ID, exchange, routingKey)
	}

	return nil
}

// newPublishing wraps msg as a persistent JSON message.
func newPublishing(msg queue.Message, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    now,
		Headers:      amqp.Table(msg.Headers),
		Body:         msg.Body,
	}
}

type qosSetter interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
}

// applyPrefetch limits unacknowledged deliveries per consumer channel.
func applyPrefetch(ch qosSetter, prefetch int) error {
	return ch.Qos(prefetch, 0, false)
}

func (c *Client) publishError(err error, exchange, routingKey, id string) error {
	c.log.Error("Failed to publish message",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.String("message_id", id),
		zap.Error(err))
	if errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("%w: failed to publish message %s: %w", domain.ErrConnectionLost, id, err)
	}
	return fmt.Errorf("failed to publish message %s: %w", id, err)
}

// Consume opens a dedicated channel with the configured prefetch and starts
// a manual-ack consumer. The stream is cancelled when ctx is done.
func (c *Client) Consume(ctx context.Context, queueName string) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open consumer channel: %w", domain.ErrConnectionLost, err)
	}

	if err := applyPrefetch(ch, c.config.Prefetch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set prefetch on %s: %w", queueName, err)
	}

	tag := fmt.Sprintf("%s-%s", queueName, uuid.NewString())
	deliveries, err := ch.ConsumeWithContext(ctx, queueName, tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to consume from %s: %w", queueName, err)
	}

	c.mu.Lock()
	c.channels = append(c.channels, ch)
	c.mu.Unlock()

	c.log.Info("Consumer started",
		zap.String("queue", queueName),
		zap.String("consumer_tag", tag),
		zap.Int("prefetch", c.config.Prefetch))

	return deliveries, nil
}

// NotifyClose reports the first close of either the connection or the
// publishing channel. The returned channel is closed afterwards; a close
// without an error is a graceful shutdown.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	connClosed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	pubClosed := c.pubCh.NotifyClose(make(chan *amqp.Error, 1))

	out := make(chan *amqp.Error, 1)
	go func() {
		defer close(out)
		var (
			amqpErr *amqp.Error
			ok      bool
		)
		select {
		case amqpErr, ok = <-connClosed:
		case amqpErr, ok = <-pubClosed:
		}
		if ok && amqpErr != nil {
			out <- amqpErr
		}
	}()
	return out
}

// IsClosed reports whether the connection or the publishing channel is gone.
// Without the publishing channel no batch can be forwarded or settled.
func (c *Client) IsClosed() bool {
	return c.conn.IsClosed() || c.pubCh.IsClosed()
}

// Close closes all channels and then the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	channels := c.channels
	c.channels = nil
	c.mu.Unlock()

	c.log.Info("Closing RabbitMQ connection")

	var errs []error
	for _, ch := range channels {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}

	c.pubMu.Lock()
	if err := c.pubCh.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	c.pubMu.Unlock()

	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		c.log.Error("Error closing RabbitMQ connection", zap.Error(err))
		return err
	}

	c.log.Info("RabbitMQ connection closed successfully")
	return nil
}
