// Package scanner implements the scanning service: workers generating fresh key pairs, querying the balance of
// their address on every configured network and recording the funded ones.
package scanner

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/tarancss/adpscan/lib/block"
	"github.com/tarancss/adpscan/lib/block/types"
	"github.com/tarancss/adpscan/lib/block/units"
	"github.com/tarancss/adpscan/lib/metrics"
)

// Result is the balance of one address on one network. A failed query has a zero Raw balance and Err set.
type Result struct {
	Network  string
	Decimals uint8
	Raw      *big.Int // smallest units
	Err      error
}

// Amount returns the balance as a decimal string in the network's native unit.
func (r Result) Amount() string {
	return units.Format(r.Raw, r.Decimals)
}

// Positive reports whether the network returned a balance greater than zero.
func (r Result) Positive() bool {
	return r.Err == nil && r.Raw != nil && r.Raw.Sign() > 0
}

// Funded returns true if at least one result holds a positive balance.
func Funded(rs []Result) bool {
	for _, r := range rs {
		if r.Positive() {
			return true
		}
	}

	return false
}

// Scanner queries an address on a fixed, ordered set of chains.
type Scanner struct {
	chains  []block.Chain
	timeout time.Duration
}

// NewScanner returns a scanner over chains. Every balance query is bounded by timeout; zero means no deadline
// other than the caller's context.
func NewScanner(chains []block.Chain, timeout time.Duration) *Scanner {
	return &Scanner{chains: chains, timeout: timeout}
}

// Networks returns the names of the scanned networks in order.
func (s *Scanner) Networks() []string {
	names := make([]string, len(s.chains))
	for i, c := range s.chains {
		names[i] = c.Name()
	}

	return names
}

// Scan queries the balance of address on all chains concurrently and waits for every query to complete or fail.
// The returned slice has one result per chain in chain order. Failures are logged and counted, not retried.
func (s *Scanner) Scan(ctx context.Context, address common.Address) []Result {
	rs := make([]Result, len(s.chains))

	var wg sync.WaitGroup

	for i, c := range s.chains {
		wg.Add(1)

		go func(i int, c block.Chain) {
			defer wg.Done()

			rs[i] = s.query(ctx, c, address)
		}(i, c)
	}

	wg.Wait()

	return rs
}

func (s *Scanner) query(ctx context.Context, c block.Chain, address common.Address) Result {
	r := Result{Network: c.Name(), Decimals: c.Decimals()}

	cctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc

		cctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	bal, err := c.Balance(cctx, address)
	metrics.RPCDuration.WithLabelValues(r.Network).Observe(time.Since(start).Seconds())

	if err == nil && bal == nil {
		err = types.Classify(errors.New("empty balance"))
	}

	if err != nil {
		r.Raw = new(big.Int)
		r.Err = types.Classify(err)

		// queries aborted by shutdown are not node failures
		if ctx.Err() != nil {
			return r
		}

		metrics.RPCFailures.WithLabelValues(r.Network, types.Kind(r.Err)).Inc()
		log.Warn().Str("net", r.Network).Str("kind", types.Kind(r.Err)).Err(err).Msg("Balance query failed")

		return r
	}

	r.Raw = bal

	return r
}
