// Package msg defines the interface for message brokers publishing discovery events. Events carry the address and
// balances of a discovery, never its private key.
package msg

import (
	"github.com/tarancss/adpscan/lib/store"
)

// Exchange and routing names shared by publishers and consumers.
const (
	Exchange   = "sd" // "scanner discoveries"
	RoutingKey = "discovery"
)

// Broker publishes and consumes discovery events.
type Broker interface {
	Setup() error
	Close() error

	// SendDiscovery publishes a discovery event.
	SendDiscovery(d store.Discovery) error
	// GetDiscoveries consumes discovery events from the durable queue named queue, pushing them to the returned
	// channel. Decoding errors are pushed to the error channel.
	GetDiscoveries(queue string) (<-chan store.Discovery, <-chan error, error)
}
