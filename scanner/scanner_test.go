package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/adpscan/lib/block"
	"github.com/tarancss/adpscan/lib/block/types"
)

// fakeChain is a Chain answering with bal.
type fakeChain struct {
	name string
	bal  func(ctx context.Context, a common.Address) (*big.Int, error)
}

func (f *fakeChain) Name() string    { return f.name }
func (f *fakeChain) Decimals() uint8 { return 18 }
func (f *fakeChain) Close()          {}

func (f *fakeChain) Balance(ctx context.Context, a common.Address) (*big.Int, error) {
	return f.bal(ctx, a)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func fixed(v *big.Int) func(context.Context, common.Address) (*big.Int, error) {
	return func(context.Context, common.Address) (*big.Int, error) { return v, nil }
}

func failing(err error) func(context.Context, common.Address) (*big.Int, error) {
	return func(context.Context, common.Address) (*big.Int, error) { return nil, err }
}

// hanging blocks until the query context is done, like a node that never answers.
func hanging(ctx context.Context, _ common.Address) (*big.Int, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

// networks returns the four networks of the default settings with the given balance functions.
func networks(eth, bsc, polygon, arbitrum func(context.Context, common.Address) (*big.Int, error)) []block.Chain {
	return []block.Chain{
		&fakeChain{name: "ethereum", bal: eth},
		&fakeChain{name: "bsc", bal: bsc},
		&fakeChain{name: "polygon", bal: polygon},
		&fakeChain{name: "arbitrum", bal: arbitrum},
	}
}

func TestScanOrderWithFailures(t *testing.T) {
	unreachable := fmt.Errorf("%w: dial tcp: connection refused", types.ErrUnreachable)
	s := NewScanner(networks(
		failing(unreachable),
		fixed(ether(5)),
		failing(errors.New("execution reverted")),
		fixed(big.NewInt(0)),
	), time.Second)

	assert.Equal(t, []string{"ethereum", "bsc", "polygon", "arbitrum"}, s.Networks())

	rs := s.Scan(context.Background(), common.Address{})
	require.Len(t, rs, 4)

	assert.Equal(t, "ethereum", rs[0].Network)
	assert.ErrorIs(t, rs[0].Err, types.ErrUnreachable)
	assert.Equal(t, "0.0", rs[0].Amount())

	assert.Equal(t, "bsc", rs[1].Network)
	assert.NoError(t, rs[1].Err)
	assert.Equal(t, "5.0", rs[1].Amount())

	assert.ErrorIs(t, rs[2].Err, types.ErrRPC)
	assert.Equal(t, "0.0", rs[2].Amount())
	assert.Equal(t, "0.0", rs[3].Amount())

	assert.True(t, Funded(rs))
}

func TestScanAllFailed(t *testing.T) {
	down := failing(types.ErrUnreachable)
	rs := NewScanner(networks(down, down, down, down), time.Second).Scan(context.Background(), common.Address{})

	require.Len(t, rs, 4)
	for _, r := range rs {
		assert.ErrorIs(t, r.Err, types.ErrUnreachable)
		assert.False(t, r.Positive())
	}
	assert.False(t, Funded(rs))
}

func TestScanIsConcurrent(t *testing.T) {
	slow := func(ctx context.Context, _ common.Address) (*big.Int, error) {
		time.Sleep(200 * time.Millisecond)

		return big.NewInt(0), nil
	}

	start := time.Now()
	rs := NewScanner(networks(slow, slow, slow, slow), time.Second).Scan(context.Background(), common.Address{})
	elapsed := time.Since(start)

	require.Len(t, rs, 4)
	assert.Less(t, elapsed, 600*time.Millisecond, "queries ran one after the other")
}

func TestScanTimeout(t *testing.T) {
	s := NewScanner(networks(fixed(big.NewInt(1)), hanging, fixed(big.NewInt(0)), hanging), 50*time.Millisecond)

	start := time.Now()
	rs := s.Scan(context.Background(), common.Address{})

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, rs[1].Err, types.ErrTimeout)
	assert.ErrorIs(t, rs[3].Err, types.ErrTimeout)
	assert.Equal(t, "0.000000000000000001", rs[0].Amount())
	assert.True(t, Funded(rs))
}

func TestScanNilBalance(t *testing.T) {
	rs := NewScanner(networks(fixed(nil), fixed(nil), fixed(nil), fixed(nil)), 0).Scan(context.Background(), common.Address{})

	for _, r := range rs {
		assert.ErrorIs(t, r.Err, types.ErrRPC)
		assert.Equal(t, "0.0", r.Amount())
	}
}
