package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/photon-ccm/photon/types"
)

// InMemorySecp256K1Signer is a transmitter key kept in memory.
type InMemorySecp256K1Signer struct {
	key *ecdsa.PrivateKey
}

// NewInMemorySecp256K1Signer generates new key and creates a new InMemorySecp256K1Signer.
func NewInMemorySecp256K1Signer() (*InMemorySecp256K1Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating secp256k1 key: %w", err)
	}
	return &InMemorySecp256K1Signer{key: key}, nil
}

// NewInMemorySecp256K1SignerFromKey creates signer from 32 byte private key.
func NewInMemorySecp256K1SignerFromKey(privKey []byte) (*InMemorySecp256K1Signer, error) {
	key, err := ethcrypto.ToECDSA(privKey)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 private key: %w", err)
	}
	return &InMemorySecp256K1Signer{key: key}, nil
}

// Address returns the Ethereum address of the key.
func (s *InMemorySecp256K1Signer) Address() types.EthAddress {
	return ethcrypto.PubkeyToAddress(s.key.PublicKey)
}

/*
SignBytes signs keccak256 hash of "data", returns 65 byte [R || S || V]
signature with V in 0/1 form.
*/
func (s *InMemorySecp256K1Signer) SignBytes(data []byte) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return ethcrypto.Sign(ethcrypto.Keccak256(data), s.key)
}

// SignOpHash creates transmitter signature over the op hash.
func (s *InMemorySecp256K1Signer) SignOpHash(opHash types.Hash) (types.TransmitterSignature, error) {
	if s == nil {
		return types.TransmitterSignature{}, errors.New("nil signer")
	}
	digest := EthSignedMessageHash(opHash)
	raw, err := ethcrypto.Sign(digest[:], s.key)
	if err != nil {
		return types.TransmitterSignature{}, fmt.Errorf("signing op hash: %w", err)
	}
	sig, err := types.SignatureFromBytes(raw)
	if err != nil {
		return sig, err
	}
	sig.V += 27
	return sig, nil
}

func (s *InMemorySecp256K1Signer) MarshalPrivateKey() ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return ethcrypto.FromECDSA(s.key), nil
}

func (s *InMemorySecp256K1Signer) Verifier() (Verifier, error) {
	if s == nil {
		return nil, errors.New("nil signer")
	}
	return &Secp256K1Verifier{pub: &s.key.PublicKey}, nil
}

type Secp256K1Verifier struct {
	pub *ecdsa.PublicKey
}

// NewVerifierSecp256k1 creates verifier from compressed or uncompressed public key.
func NewVerifierSecp256k1(pubKey []byte) (*Secp256K1Verifier, error) {
	var (
		pub *ecdsa.PublicKey
		err error
	)
	if len(pubKey) == 33 {
		pub, err = ethcrypto.DecompressPubkey(pubKey)
	} else {
		pub, err = ethcrypto.UnmarshalPubkey(pubKey)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
	}
	return &Secp256K1Verifier{pub: pub}, nil
}

// VerifyBytes verifies signature created by SignBytes.
func (v *Secp256K1Verifier) VerifyBytes(sig []byte, data []byte) error {
	if len(sig) != 65 {
		return fmt.Errorf("%w: expected 65 bytes, got %d", types.ErrInvalidSignature, len(sig))
	}
	if !ethcrypto.VerifySignature(ethcrypto.CompressPubkey(v.pub), ethcrypto.Keccak256(data), sig[:64]) {
		return types.ErrInvalidSignature
	}
	return nil
}

func (v *Secp256K1Verifier) MarshalPublicKey() ([]byte, error) {
	return ethcrypto.CompressPubkey(v.pub), nil
}

func (v *Secp256K1Verifier) Address() types.EthAddress {
	return ethcrypto.PubkeyToAddress(*v.pub)
}
