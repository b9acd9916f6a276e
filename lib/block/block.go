// Package block defines the interface required for all blockchain or network connections used by the scanner.
package block

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/tarancss/adpscan/lib/block/ethereum"
	"github.com/tarancss/adpscan/lib/block/jsonrpc"
	"github.com/tarancss/adpscan/lib/config"
)

// Chain is a handle to one network able to query native balances. Implementations are bound to a single network
// at construction and are safe for concurrent use without external locking.
type Chain interface {
	Name() string
	Decimals() uint8 // decimals of the native unit
	// Balance returns the balance of address in the network's smallest unit. Errors wrap one of types.ErrTimeout,
	// types.ErrUnreachable or types.ErrRPC.
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	Close()
}

// Init loads a client for each configured network, keeping the configured order.
func Init(ctx context.Context, nets []config.NetworkConfig) ([]Chain, error) {
	chains := make([]Chain, 0, len(nets))

	for _, n := range nets {
		var (
			c   Chain
			err error
		)

		switch n.Driver {
		case config.DriverJSONRPC:
			c, err = jsonrpc.Init(n.Name, n.Node, n.Secret, n.Decimals)
		case config.DriverEthereum, "":
			c, err = ethereum.Init(ctx, n.Name, n.Node, n.Secret, n.Decimals)
		default:
			err = config.ErrDriver
		}

		if err != nil {
			End(chains)

			return nil, fmt.Errorf("block: network %s: %w", n.Name, err)
		}

		log.Debug().Str("net", n.Name).Str("driver", n.Driver).Msg("Blockchain client loaded")

		chains = append(chains, c)
	}

	return chains, nil
}

// End closes gracefully all the blockchain clients opened.
func End(chains []Chain) {
	for _, c := range chains {
		c.Close()
	}
}
