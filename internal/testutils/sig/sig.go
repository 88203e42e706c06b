/*
Package testsig contains key helpers for tests: transmitters sign the
operation hashes with secp256k1 keys, callers of the endpoint are
identified by ed25519 keys.
*/
package testsig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/crypto"
	"github.com/photon-ccm/photon/types"
)

func NewTransmitter(t *testing.T) *crypto.InMemorySecp256K1Signer {
	t.Helper()
	signer, err := crypto.NewInMemorySecp256K1Signer()
	require.NoError(t, err)
	return signer
}

// NewTransmitters returns "n" transmitters and their addresses.
func NewTransmitters(t *testing.T, n int) ([]*crypto.InMemorySecp256K1Signer, []types.EthAddress) {
	t.Helper()
	signers := make([]*crypto.InMemorySecp256K1Signer, n)
	addrs := make([]types.EthAddress, n)
	for i := range signers {
		signers[i] = NewTransmitter(t)
		addrs[i] = signers[i].Address()
	}
	return signers, addrs
}

// SignOp returns signatures of the op hash by all the signers.
func SignOp(t *testing.T, opHash types.Hash, signers ...*crypto.InMemorySecp256K1Signer) []types.TransmitterSignature {
	t.Helper()
	sigs := make([]types.TransmitterSignature, len(signers))
	for i, s := range signers {
		sig, err := s.SignOpHash(opHash)
		require.NoError(t, err)
		sigs[i] = sig
	}
	return sigs
}

func NewCaller(t *testing.T) *crypto.InMemoryEd25519Signer {
	t.Helper()
	signer, err := crypto.NewInMemoryEd25519Signer()
	require.NoError(t, err)
	return signer
}

func CreateSignerAndVerifier(t *testing.T) (crypto.Signer, crypto.Verifier) {
	t.Helper()
	signer, err := crypto.NewInMemorySecp256K1Signer()
	require.NoError(t, err)

	verifier, err := signer.Verifier()
	require.NoError(t, err)
	return signer, verifier
}
