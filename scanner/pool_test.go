package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/adpscan/lib/block/types"
	"github.com/tarancss/adpscan/lib/keygen"
	"github.com/tarancss/adpscan/lib/sink"
	"github.com/tarancss/adpscan/lib/store"
)

// memSink records appended lines, failing the first fails appends.
type memSink struct {
	mu    sync.Mutex
	fails int
	calls int
	lines []string
}

func (m *memSink) Append(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls <= m.fails {
		return sink.ErrIO
	}

	m.lines = append(m.lines, line)

	return nil
}

func (m *memSink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.lines...)
}

// brokenGen is a generator whose entropy source is gone.
type brokenGen struct{}

func (brokenGen) Generate() (keygen.Candidate, error) {
	return keygen.Candidate{}, keygen.ErrEntropyUnavailable
}

// memIndex is a store.DB in memory.
type memIndex struct {
	mu sync.Mutex
	ds []store.Discovery
}

func (m *memIndex) SaveDiscovery(d store.Discovery) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ds = append(m.ds, d)

	return []byte{byte(len(m.ds))}, nil
}

func (m *memIndex) GetDiscoveries([]string) ([]store.Discovery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ds, nil
}

func (m *memIndex) Close() error { return nil }

// memBroker is a msg.Broker failing every publication.
type memBroker struct {
	sent atomic.Int32
}

func (m *memBroker) Setup() error { return nil }
func (m *memBroker) Close() error { return nil }

func (m *memBroker) SendDiscovery(store.Discovery) error {
	m.sent.Add(1)

	return errors.New("broker down")
}

func (m *memBroker) GetDiscoveries(string) (<-chan store.Discovery, <-chan error, error) {
	return nil, nil, nil
}

func TestBscFundedScenario(t *testing.T) {
	out, err := sink.Open(filepath.Join(t.TempDir(), "with_balance.txt"))
	require.NoError(t, err)
	defer out.Close()

	zero := fixed(big.NewInt(0))
	sc := NewScanner(networks(zero, fixed(ether(5)), zero, zero), time.Second)

	var echo bytes.Buffer
	idx := &memIndex{}
	p := NewPool(keygen.NewRaw(nil), sc, out, WithEcho(&echo), WithIndex(idx))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.iterate(context.Background()))
	}

	lines, err := sink.Lines(out.Path())
	require.NoError(t, err)
	require.Len(t, lines, 3)

	for _, l := range lines {
		assert.Regexp(t, `^Address: 0x[0-9a-fA-F]{40}, PrivateKey: [0-9a-f]{64}, `+
			`ethereum Balance: 0\.0, bsc Balance: 5\.0, polygon Balance: 0\.0, arbitrum Balance: 0\.0$`, l)

		// the recorded key re-derives to the recorded address
		fields := strings.Split(l, ", ")
		derived, err := keygen.Derive(strings.TrimPrefix(fields[1], "PrivateKey: "))
		require.NoError(t, err)
		assert.Equal(t, strings.TrimPrefix(fields[0], "Address: "), derived.Hex())
	}

	assert.Equal(t, strings.Join(lines, "\n")+"\n", echo.String())
	assert.Equal(t, Stats{Candidates: 3, Discoveries: 3}, p.Stats())

	require.Len(t, idx.ds, 3)
	assert.Equal(t, []string{"bsc"}, idx.ds[0].Funded())
	assert.Equal(t, []store.Balance{
		{Net: "ethereum", Amount: "0.0"}, {Net: "bsc", Amount: "5.0"},
		{Net: "polygon", Amount: "0.0"}, {Net: "arbitrum", Amount: "0.0"},
	}, idx.ds[0].Balances)
}

func TestUnreachableScenario(t *testing.T) {
	down := failing(types.ErrUnreachable)
	m := &memSink{}
	p := NewPool(keygen.NewRaw(nil), NewScanner(networks(down, down, down, down), time.Second), m)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Start(ctx, 4))
	require.NoError(t, p.Wait())

	assert.Zero(t, m.calls)
	assert.Empty(t, m.Lines())
	assert.Greater(t, p.Stats().Candidates, uint64(4))
	assert.Zero(t, p.Stats().Discoveries)
}

func TestSinkRetry(t *testing.T) {
	m := &memSink{fails: 2}
	p := NewPool(keygen.NewRaw(nil), NewScanner(networks(fixed(ether(1)), fixed(nil), fixed(nil), fixed(nil)), time.Second),
		m, WithRetry(3, 0))

	require.NoError(t, p.iterate(context.Background()))
	assert.Equal(t, 3, m.calls)
	assert.Len(t, m.Lines(), 1)
}

func TestSinkFailureStopsPool(t *testing.T) {
	m := &memSink{fails: 1 << 30}
	mb := &memBroker{}
	funded := fixed(ether(1))
	p := NewPool(keygen.NewRaw(nil), NewScanner(networks(funded, funded, funded, funded), time.Second),
		m, WithRetry(4, time.Millisecond), WithBroker(mb))

	require.NoError(t, p.Start(context.Background(), 2))

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSink)
		require.ErrorIs(t, err, sink.ErrIO)
	case <-time.After(5 * time.Second):
		t.Fatal("pool kept running after the sink failed")
	}

	assert.Zero(t, p.Stats().Discoveries)
	assert.Zero(t, mb.sent.Load())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.GreaterOrEqual(t, m.calls, 4)
}

func TestBrokerFailureIsNotFatal(t *testing.T) {
	m := &memSink{}
	mb := &memBroker{}
	p := NewPool(keygen.NewRaw(nil), NewScanner(networks(fixed(ether(2)), fixed(nil), fixed(nil), fixed(nil)), time.Second),
		m, WithBroker(mb))

	require.NoError(t, p.iterate(context.Background()))
	assert.Len(t, m.Lines(), 1)
	assert.Equal(t, int32(1), mb.sent.Load())
}

func TestEntropyStopsWorkers(t *testing.T) {
	p := NewPool(brokenGen{}, NewScanner(networks(fixed(nil), fixed(nil), fixed(nil), fixed(nil)), time.Second), &memSink{})

	require.NoError(t, p.Start(context.Background(), 3))
	require.ErrorIs(t, p.Wait(), ErrNoWorkers)
	assert.Zero(t, p.Stats().Candidates)
}

func TestStartErrors(t *testing.T) {
	p := NewPool(keygen.NewRaw(nil), NewScanner(nil, time.Second), &memSink{})

	require.ErrorIs(t, p.Wait(), ErrNotStarted)
	require.ErrorIs(t, p.Start(context.Background(), 0), ErrWorkers)
	require.ErrorIs(t, p.Start(context.Background(), -2), ErrWorkers)
}

func TestRecord(t *testing.T) {
	key := make([]byte, keygen.KeySize)
	key[keygen.KeySize-1] = 1

	c, err := keygen.NewRaw(bytes.NewReader(key)).Generate()
	require.NoError(t, err)

	rs := []Result{
		{Network: "ethereum", Decimals: 18, Raw: big.NewInt(0)},
		{Network: "bsc", Decimals: 18, Raw: ether(5)},
		{Network: "polygon", Decimals: 18, Raw: new(big.Int), Err: types.ErrTimeout},
		{Network: "arbitrum", Decimals: 18, Raw: big.NewInt(1)},
	}

	r := NewRecord(c, rs)
	assert.Equal(t, "Address: 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf, "+
		"PrivateKey: 0000000000000000000000000000000000000000000000000000000000000001, "+
		"ethereum Balance: 0.0, bsc Balance: 5.0, polygon Balance: 0.0, arbitrum Balance: 0.000000000000000001", r.Line())

	found := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d := r.Discovery(found)
	assert.Equal(t, common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf").Hex(), d.Address)
	assert.Equal(t, []string{"bsc", "arbitrum"}, d.Funded())
	assert.Equal(t, found, d.Found)

	// the secret never leaves the record
	doc, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), r.PrivateKeyHex)
}
