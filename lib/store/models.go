package store

import (
	"time"

	"github.com/tarancss/adpscan/lib/util"
)

// Balance is the amount held on one network, as a decimal string in the network's native unit.
type Balance struct {
	Net    string `json:"net" bson:"net"`
	Amount string `json:"amount" bson:"amount"`
}

// Discovery contains the fields of a funded address saved to DB. Balances has one entry per configured network in
// configured order.
type Discovery struct {
	ID       []byte    `json:"id,omitempty" bson:"-"`
	Address  string    `json:"address" bson:"address"`
	Balances []Balance `json:"balances" bson:"balances"`
	Found    time.Time `json:"found" bson:"found"`
}

// Funded returns the names of the networks with a non-zero balance.
func (d Discovery) Funded() []string {
	var nets []string

	for _, b := range d.Balances {
		if !isZero(b.Amount) {
			nets = append(nets, b.Net)
		}
	}

	return nets
}

// FundedOn returns true if the discovery holds a balance on any of the networks in nets.
func (d Discovery) FundedOn(nets []string) bool {
	for _, n := range d.Funded() {
		if util.In(nets, n) {
			return true
		}
	}

	return false
}

func isZero(amount string) bool {
	for _, r := range amount {
		if r != '0' && r != '.' && r != '-' {
			return false
		}
	}

	return true
}
