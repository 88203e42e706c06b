package crypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/photon-ccm/photon/types"
)

/*
InMemoryEd25519Signer is a caller identity key. The public key of the signer
is the caller's types.Address (admin, executor, proposer).
*/
type InMemoryEd25519Signer struct {
	key ed25519.PrivateKey
}

// NewInMemoryEd25519Signer generates new key and creates a new InMemoryEd25519Signer.
func NewInMemoryEd25519Signer() (*InMemoryEd25519Signer, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewInMemoryEd25519SignerFromSeed(privateKey.Seed())
}

// NewInMemoryEd25519SignerFromSeed creates new InMemoryEd25519Signer from private key seed bytes.
func NewInMemoryEd25519SignerFromSeed(seed []byte) (*InMemoryEd25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid ed25519 seed length %d, expected %d", len(seed), ed25519.SeedSize)
	}
	return &InMemoryEd25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *InMemoryEd25519Signer) Address() types.Address {
	var a types.Address
	copy(a[:], s.key.Public().(ed25519.PublicKey))
	return a
}

func (s *InMemoryEd25519Signer) SignBytes(data []byte) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return s.key.Sign(rand.Reader, data, crypto.Hash(0))
}

func (s *InMemoryEd25519Signer) MarshalPrivateKey() ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return s.key.Seed(), nil
}

func (s *InMemoryEd25519Signer) Verifier() (Verifier, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return NewEd25519Verifier(s.Address()), nil
}

type Ed25519Verifier struct {
	key ed25519.PublicKey
}

// NewEd25519Verifier creates verifier for the caller identity "addr".
func NewEd25519Verifier(addr types.Address) *Ed25519Verifier {
	return &Ed25519Verifier{key: ed25519.PublicKey(addr.Bytes())}
}

func (v *Ed25519Verifier) VerifyBytes(sig []byte, data []byte) error {
	if !ed25519.Verify(v.key, data, sig) {
		return types.ErrInvalidSignature
	}
	return nil
}

func (v *Ed25519Verifier) MarshalPublicKey() ([]byte, error) {
	return append([]byte(nil), v.key...), nil
}
