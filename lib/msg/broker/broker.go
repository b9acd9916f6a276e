// Package broker implements the opening of message broker connections.
package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/tarancss/adpscan/lib/msg"
	"github.com/tarancss/adpscan/lib/msg/amqp"
)

const AMQP string = "amqp"

// ErrUnknownType is returned for an unsupported broker type.
var ErrUnknownType = errors.New("unknown message broker type")

// dial attempts and the delay between them, giving a broker started alongside the scanner time to come up.
var (
	DialAttempts = uint(2)
	DialDelay    = 10 * time.Second
)

// New connects to the broker of type options and declares its exchange. An empty connection string disables the
// broker and returns a nil Broker.
func New(options, connection string) (msg.Broker, error) {
	if connection == "" {
		return nil, nil
	}

	switch options {
	case AMQP:
		var a *amqp.Amqp

		err := retry.Do(
			func() (err error) {
				a, err = amqp.New(connection)

				return err
			},
			retry.Attempts(DialAttempts),
			retry.Delay(DialDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn().Err(err).Dur("wait", DialDelay).Msg("Message broker not ready")
			}),
		)
		if err != nil {
			return nil, err
		}

		if err = a.Setup(); err != nil {
			_ = a.Close()

			return nil, fmt.Errorf("amqp: setup: %w", err)
		}

		return a, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, options)
}
