package scanner

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tarancss/adpscan/lib/keygen"
	"github.com/tarancss/adpscan/lib/store"
)

// Amount is the balance of a record on one network.
type Amount struct {
	Network string
	Value   string
}

// Record is a discovery: a funded address, its private key and its balance on every scanned network, in scan
// order. It is the only value the private key is copied into.
type Record struct {
	Address       common.Address
	PrivateKeyHex string
	Amounts       []Amount
}

// NewRecord builds the record of candidate c from its scan results.
func NewRecord(c keygen.Candidate, rs []Result) Record {
	r := Record{
		Address:       c.Address,
		PrivateKeyHex: c.KeyHex(),
		Amounts:       make([]Amount, len(rs)),
	}

	for i, res := range rs {
		r.Amounts[i] = Amount{Network: res.Network, Value: res.Amount()}
	}

	return r
}

// Line renders the record as a line of the results artifact:
//
//	Address: <address>, PrivateKey: <hex>, <Network1> Balance: <decimal>, <Network2> Balance: <decimal>, ...
func (r Record) Line() string {
	var b strings.Builder

	b.WriteString("Address: ")
	b.WriteString(r.Address.Hex())
	b.WriteString(", PrivateKey: ")
	b.WriteString(r.PrivateKeyHex)

	for _, a := range r.Amounts {
		b.WriteString(", ")
		b.WriteString(a.Network)
		b.WriteString(" Balance: ")
		b.WriteString(a.Value)
	}

	return b.String()
}

// Discovery returns the record without its private key, as stored in the index and sent to the broker.
func (r Record) Discovery(found time.Time) store.Discovery {
	d := store.Discovery{
		Address:  r.Address.Hex(),
		Balances: make([]store.Balance, len(r.Amounts)),
		Found:    found,
	}

	for i, a := range r.Amounts {
		d.Balances[i] = store.Balance{Net: a.Network, Amount: a.Value}
	}

	return d
}
