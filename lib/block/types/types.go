// Package types common blockchain types and the error taxonomy of balance queries.
package types

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// Error codes of a balance query. Drivers return errors wrapping exactly one of them.
var (
	ErrTimeout     = errors.New("rpc timeout")
	ErrUnreachable = errors.New("node unreachable")
	ErrRPC         = errors.New("rpc error")
	ErrNoNode      = errors.New("cannot connect to node")
)

// Kinds used as labels when reporting failures.
const (
	KindTimeout     = "timeout"
	KindUnreachable = "unreachable"
	KindRPC         = "rpc"
)

// Classify wraps err with the taxonomy error that describes it: deadlines and cancellations are timeouts, dial and
// transport failures are unreachable nodes, anything else returned by the node is an RPC error.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) || errors.Is(err, ErrRPC) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	if errors.Is(err, ErrNoNode) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %w", ErrRPC, err)
}

// Kind returns the label of a classified error, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	default:
		return KindRPC
	}
}
