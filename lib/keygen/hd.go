package keygen

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/tarancss/hd"
)

// SeedSize is the length of the random seed fed to the HD wallet.
const SeedSize = 64

// HD draws a fresh random seed per candidate and uses the first external address of the first wallet derived from
// it, the address a wallet application would show for a new seed.
type HD struct {
	r io.Reader
}

// NewHD returns an HD generator reading seeds from r, or crypto/rand if r is nil.
func NewHD(r io.Reader) *HD {
	if r == nil {
		r = rand.Reader
	}

	return &HD{r: r}
}

// Generate returns a new candidate. The address given by the HD wallet is checked against Derive so every recorded
// key re-derives to its recorded address.
func (g *HD) Generate() (Candidate, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(g.r, seed); err != nil {
		return Candidate{}, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
	}

	w, err := hd.Init(seed)
	if err != nil {
		return Candidate{}, fmt.Errorf("keygen: hd wallet: %w", err)
	}

	addr, key, _, err := w.Address(0, hd.External, 0)
	if err != nil {
		return Candidate{}, fmt.Errorf("keygen: hd address: %w", err)
	}

	if len(key) != KeySize {
		return Candidate{}, fmt.Errorf("%w: key of %d bytes", ErrBadKey, len(key))
	}

	var c Candidate

	copy(c.PrivateKey[:], key)

	if c.Address, err = Derive(c.KeyHex()); err != nil {
		return Candidate{}, err
	}

	if !bytes.Equal(c.Address.Bytes(), addr) {
		return Candidate{}, fmt.Errorf("%w: hd %x, derived %x", ErrDerivation, addr, c.Address.Bytes())
	}

	return c, nil
}
