// Package keygen produces fresh secp256k1 key pairs and derives their 20-byte account address.
//
// Generators read from an operating-system backed random source (crypto/rand unless a reader is injected) and keep
// no state between calls, so a single Generator is safe to share between workers.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tarancss/adpscan/lib/config"
)

// KeySize is the length in bytes of a private key.
const KeySize = 32

// maxDraws bounds the re-draws of secrets outside the curve order. The chance of a single bad draw is ~2^-128.
const maxDraws = 8

// Errors returned.
var (
	ErrEntropyUnavailable = errors.New("entropy source unavailable")
	ErrBadKey             = errors.New("invalid private key")
	ErrDerivation         = errors.New("derived address mismatch")
	ErrKind               = errors.New("unknown key generator")
)

// Candidate is a freshly generated key pair reduced to what the scanner needs.
type Candidate struct {
	Address    common.Address
	PrivateKey [KeySize]byte
}

// KeyHex returns the private key hex-encoded without 0x prefix.
func (c Candidate) KeyHex() string {
	return hex.EncodeToString(c.PrivateKey[:])
}

// Generator produces candidates.
type Generator interface {
	Generate() (Candidate, error)
}

// New returns the generator of the given kind reading entropy from r (crypto/rand when nil).
func New(kind string, r io.Reader) (Generator, error) {
	switch kind {
	case config.KeyGenRaw, "":
		return NewRaw(r), nil
	case config.KeyGenHD:
		return NewHD(r), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrKind, kind)
}

// Raw draws 32 random bytes per candidate and uses them as the secret.
type Raw struct {
	r io.Reader
}

// NewRaw returns a Raw generator reading from r, or crypto/rand if r is nil.
func NewRaw(r io.Reader) *Raw {
	if r == nil {
		r = rand.Reader
	}

	return &Raw{r: r}
}

// Generate returns a new candidate. Draws that are not a valid secret (zero or not below the curve order) are
// discarded and drawn again.
func (g *Raw) Generate() (Candidate, error) {
	var c Candidate

	for i := 0; i < maxDraws; i++ {
		if _, err := io.ReadFull(g.r, c.PrivateKey[:]); err != nil {
			return Candidate{}, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
		}

		key, err := crypto.ToECDSA(c.PrivateKey[:])
		if err != nil {
			continue
		}

		c.Address = crypto.PubkeyToAddress(key.PublicKey)

		return c, nil
	}

	return Candidate{}, fmt.Errorf("%w: %d draws outside the key space", ErrEntropyUnavailable, maxDraws)
}

// Derive returns the address of the hex-encoded private key (with or without 0x prefix).
func Derive(keyHex string) (common.Address, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil || len(b) != KeySize {
		return common.Address{}, ErrBadKey
	}

	key, err := crypto.ToECDSA(b)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrBadKey, err)
	}

	return crypto.PubkeyToAddress(key.PublicKey), nil
}
