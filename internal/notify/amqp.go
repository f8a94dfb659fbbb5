package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/teemow/senderwatch/internal/logging"
)

// DefaultExchange is the fanout exchange notifications are published to.
const DefaultExchange = "senderwatch-notifications"

// DefaultConfirmTimeout bounds the wait for a publisher confirm.
const DefaultConfirmTimeout = 5 * time.Second

// AMQPPublisher publishes events as persistent JSON messages to a durable
// fanout exchange and waits for the broker to confirm each one.
type AMQPPublisher struct {
	url            string
	exchange       string
	confirmTimeout time.Duration
	logger         *slog.Logger

	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	confirms   chan amqp.Confirmation
}

// NewAMQPPublisher connects to url and declares exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &AMQPPublisher{
		url:            url,
		exchange:       exchange,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         logging.WithComponent(logger, "notify.amqp"),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials the broker, declares the exchange and opens a confirm-mode channel.
// Callers hold p.mu.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "Failed to open publish channel")
	}

	err = channel.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return errors.Wrapf(err, "Failed to declare exchange %s", p.exchange)
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return errors.Wrap(err, "Failed to enable publisher confirms")
	}

	p.connection = conn
	p.channel = channel
	p.confirms = channel.NotifyPublish(make(chan amqp.Confirmation, 1))
	return nil
}

func (p *AMQPPublisher) ensureChannel() error {
	if p.connection != nil && !p.connection.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	if p.connection != nil && !p.connection.IsClosed() {
		p.connection.Close()
	}
	p.logger.Info("reconnecting to RabbitMQ")
	return errors.Wrap(p.connect(), "Failed to establish channel")
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encodeEvent(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, "", false, false, msg); err != nil {
		return errors.Wrap(err, "Failed to publish message")
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return errors.New("Channel closed before confirmation")
		}
		if !confirm.Ack {
			return errors.New("Message was not confirmed by server")
		}
	case <-time.After(p.confirmTimeout):
		return errors.New("Publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		if cerr := p.channel.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
			err = errors.Wrap(cerr, "Error closing publish channel")
		}
	}
	if p.connection != nil {
		if cerr := p.connection.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) && err == nil {
			err = errors.Wrap(cerr, "Error closing connection")
		}
	}
	return err
}

func encodeEvent(e Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "Failed to marshal event")
	}
	return amqp.Publishing{
		MessageId:    e.ID,
		Type:         e.Operation,
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    e.At,
		Body:         body,
	}, nil
}
