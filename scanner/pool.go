package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tarancss/adpscan/lib/keygen"
	"github.com/tarancss/adpscan/lib/metrics"
	"github.com/tarancss/adpscan/lib/msg"
	"github.com/tarancss/adpscan/lib/store"
)

// Errors returned by the pool.
var (
	ErrWorkers    = errors.New("worker count must be positive")
	ErrNotStarted = errors.New("pool not started")
	ErrSink       = errors.New("discovery could not be recorded")
	ErrNoWorkers  = errors.New("all workers stopped")
	errGenerate   = errors.New("key generation failed")
)

// Defaults of the sink retry policy.
const (
	DefaultAttempts   = 5
	DefaultRetryDelay = 200 * time.Millisecond
)

// Appender durably appends a line to the results artifact.
type Appender interface {
	Append(line string) error
}

// Stats are the counters of a pool.
type Stats struct {
	Candidates  uint64
	Discoveries uint64
}

// Pool runs a fixed number of independent workers. Workers share the generator, the scanner's chain clients and
// the appender; they have no other shared state.
type Pool struct {
	gen     keygen.Generator
	scanner *Scanner
	sink    Appender

	db   store.DB
	mb   msg.Broker
	echo io.Writer

	attempts uint
	delay    time.Duration

	g     *errgroup.Group
	alive atomic.Int64

	candidates  atomic.Uint64
	discoveries atomic.Uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithIndex saves every discovery (without private key) to db.
func WithIndex(db store.DB) Option {
	return func(p *Pool) { p.db = db }
}

// WithBroker publishes every discovery (without private key) to mb.
func WithBroker(mb msg.Broker) Option {
	return func(p *Pool) { p.mb = mb }
}

// WithEcho writes every recorded line to w.
func WithEcho(w io.Writer) Option {
	return func(p *Pool) { p.echo = w }
}

// WithRetry sets how many times an append is attempted and the initial delay between attempts.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(p *Pool) {
		if attempts > 0 {
			p.attempts = attempts
		}
		p.delay = delay
	}
}

// NewPool returns a pool generating candidates with gen, scanning them with sc and recording discoveries to sink.
func NewPool(gen keygen.Generator, sc *Scanner, sink Appender, opts ...Option) *Pool {
	p := &Pool{
		gen:      gen,
		scanner:  sc,
		sink:     sink,
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

// Start spawns workers go routines, each running the scan loop until ctx is done. A worker that cannot record a
// discovery stops the whole pool; a worker whose key generator fails stops alone.
func (p *Pool) Start(ctx context.Context, workers int) error {
	if workers <= 0 {
		return fmt.Errorf("%w: %d", ErrWorkers, workers)
	}

	g, gctx := errgroup.WithContext(ctx)
	p.g = g
	p.alive.Store(int64(workers))

	for i := 0; i < workers; i++ {
		id := i

		g.Go(func() error {
			return p.work(gctx, id)
		})
	}

	log.Info().Int("workers", workers).Strs("nets", p.scanner.Networks()).Msg("Starting work")

	return nil
}

// Wait blocks until all workers exit and returns the error that stopped the pool, if any.
func (p *Pool) Wait() error {
	if p.g == nil {
		return ErrNotStarted
	}

	return p.g.Wait()
}

// Stats returns the counters of the pool.
func (p *Pool) Stats() Stats {
	return Stats{Candidates: p.candidates.Load(), Discoveries: p.discoveries.Load()}
}

func (p *Pool) work(ctx context.Context, id int) error {
	metrics.WorkersRunning.Inc()
	defer metrics.WorkersRunning.Dec()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("Worker stopped")

			return nil
		default:
		}

		err := p.iterate(ctx)
		if err == nil {
			continue
		}

		if errors.Is(err, errGenerate) {
			log.Error().Int("worker", id).Err(err).Msg("Worker stopped, cannot generate keys")

			if p.alive.Add(-1) == 0 {
				return ErrNoWorkers
			}

			return nil
		}

		log.Error().Int("worker", id).Err(err).Msg("Worker failed")

		return err
	}
}

// iterate generates one candidate, scans it and records it if funded.
func (p *Pool) iterate(ctx context.Context) error {
	c, err := p.gen.Generate()
	if err != nil {
		return fmt.Errorf("%w: %w", errGenerate, err)
	}

	p.candidates.Add(1)
	metrics.Candidates.Inc()

	rs := p.scanner.Scan(ctx, c.Address)
	if !Funded(rs) {
		return nil
	}

	return p.record(NewRecord(c, rs))
}

// record appends r to the artifact, retrying a bounded number of times. Retries do not observe the pool context:
// a discovery made before shutdown is still written. Once durable, it is echoed, indexed and published on a best
// effort basis.
func (p *Pool) record(r Record) error {
	line := r.Line()

	err := retry.Do(
		func() error { return p.sink.Append(line) },
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.SinkRetries.Inc()
			log.Warn().Uint("attempt", n+1).Uint("max_attempts", p.attempts).Err(err).
				Str("address", r.Address.Hex()).Msg("Append to results failed")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSink, r.Address.Hex(), err)
	}

	p.discoveries.Add(1)
	metrics.Discoveries.Inc()

	if p.echo != nil {
		fmt.Fprintln(p.echo, line)
	}

	d := r.Discovery(time.Now().UTC())
	log.Info().Str("address", d.Address).Strs("funded", d.Funded()).Msg("Discovery recorded")

	if p.db != nil {
		if _, err := p.db.SaveDiscovery(d); err != nil {
			log.Warn().Err(err).Str("address", d.Address).Msg("Cannot index discovery")
		}
	}

	if p.mb != nil {
		if err := p.mb.SendDiscovery(d); err != nil {
			log.Warn().Err(err).Str("address", d.Address).Msg("Cannot publish discovery")
		}
	}

	return nil
}
