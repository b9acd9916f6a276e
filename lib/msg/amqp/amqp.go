// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/tarancss/adpscan/lib/msg"
	"github.com/tarancss/adpscan/lib/store"
)

// Amqp implements a connection to a broker and a channel for reuse. The publishing channel is shared by all
// workers and guarded by mu.
type Amqp struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("amqp: cannot dial broker: %w", err)
	}

	log.Info().Msg("Connected to message broker")

	return &Amqp{conn: conn}, nil
}

// Setup obtains an amqp channel and declares the discoveries exchange (msg.Exchange), a durable topic exchange.
func (r *Amqp) Setup() error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(msg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing amqp.Channel")
		}

		r.ch = nil
	}

	return r.conn.Close()
}

// SendDiscovery publishes a discovery event to the discoveries exchange with routing key discovery.<address>.
func (r *Amqp) SendDiscovery(d store.Discovery) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// obtain channel if not present
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return err
		}
	}

	m := amqp.Publishing{
		Headers:      amqp.Table{"x-discovery-address": d.Address},
		Body:         doc,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
	}

	if err = r.ch.Publish(msg.Exchange, msg.RoutingKey+"."+d.Address, false, false, m); err != nil {
		// the channel is closed by the server on errors, get a new one next time
		r.ch = nil

		return fmt.Errorf("amqp: publish discovery: %w", err)
	}

	return nil
}

// GetDiscoveries declares and binds queue to the discoveries exchange and consumes it. Messages are acknowledged
// once decoded and handed over to the returned channel. Both channels are closed when the consumer stops.
func (r *Amqp) GetDiscoveries(queue string) (<-chan store.Discovery, <-chan error, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, nil, err
	}

	msgs, err := consume(ch, queue)
	if err != nil {
		return nil, nil, err
	}

	ds := make(chan store.Discovery)
	errs := make(chan error, 1)

	go func() {
		defer close(ds)
		defer close(errs)
		defer ch.Close()

		for m := range msgs {
			var d store.Discovery
			if err := json.Unmarshal(m.Body, &d); err != nil {
				_ = m.Nack(false, false)

				select {
				case errs <- err:
				default:
				}

				continue
			}

			ds <- d

			_ = m.Ack(false)
		}
	}()

	return ds, errs, nil
}

// consume declares queue, binds it to the discoveries exchange and starts consuming it on ch. ch is closed when the
// consumer cannot be set up.
func consume(ch channel, queue string) (<-chan amqp.Delivery, error) {
	msgs, err := func() (<-chan amqp.Delivery, error) {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("amqp: declare %s: %w", queue, err)
		}

		if err := ch.QueueBind(queue, msg.RoutingKey+".*", msg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("amqp: bind %s: %w", queue, err)
		}

		return ch.Consume(queue, "watch-"+queue, false, false, false, false, nil)
	}()
	if err != nil {
		if errClose := ch.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("Error closing amqp.Channel")
		}

		return nil, err
	}

	return msgs, nil
}

// channel is the part of *amqp.Channel used to set up a consumer.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}
