// Package ethereum implements the Chain interface for ethereum-type networks over the go-ethereum JSON-RPC client.
package ethereum

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tarancss/adpscan/lib/block/types"
)

// Ethereum implements a connection to an ethereum-type chain. The underlying client holds no per-call state and is
// shared by all workers.
type Ethereum struct {
	name string
	dec  uint8
	c    *ethclient.Client
}

// Init returns a client for the node at url, using secret for Basic Authentication if not empty. Over HTTP no
// request is made until the first query.
func Init(ctx context.Context, name, node, secret string, decimals uint8) (*Ethereum, error) {
	var opts []rpc.ClientOption
	if secret != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(secret))))
	}

	rc, err := rpc.DialOptions(ctx, node, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", types.ErrNoNode, node, err)
	}

	return &Ethereum{name: name, dec: decimals, c: ethclient.NewClient(rc)}, nil
}

// Name returns the configured network name.
func (e *Ethereum) Name() string {
	return e.name
}

// Decimals returns the number of decimals of the native unit.
func (e *Ethereum) Decimals() uint8 {
	return e.dec
}

// Balance returns the native balance in smallest units at the latest block.
func (e *Ethereum) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	bal, err := e.c.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, types.Classify(err)
	}

	return bal, nil
}

// Close ends a connection
func (e *Ethereum) Close() {
	e.c.Close()
}
