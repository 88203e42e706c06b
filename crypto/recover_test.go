package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/types"
)

func TestRecoverOpSigner(t *testing.T) {
	signer, err := NewInMemorySecp256K1Signer()
	require.NoError(t, err)
	opHash := ethcrypto.Keccak256Hash([]byte("operation"))

	sig, err := signer.SignOpHash(opHash)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, sig.V)

	addr, err := RecoverOpSigner(opHash, sig)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), addr)

	// 0/1 form of V recovers the same address
	sig.V -= 27
	addr, err = RecoverOpSigner(opHash, sig)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), addr)

	// signature over other hash recovers some other address
	addr, err = RecoverOpSigner(ethcrypto.Keccak256Hash([]byte("other")), sig)
	if err == nil {
		require.NotEqual(t, signer.Address(), addr)
	}
}

func TestRecoverSigner_MatchesEthSign(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	opHash := ethcrypto.Keccak256Hash([]byte{1, 2, 3})
	// personal message digest computed by hand
	digest := ethcrypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), opHash[:])
	require.Equal(t, digest, EthSignedMessageHash(opHash).Bytes())

	raw, err := ethcrypto.Sign(digest, key)
	require.NoError(t, err)
	sig, err := types.SignatureFromBytes(raw)
	require.NoError(t, err)
	addr, err := RecoverSigner(common.BytesToHash(digest), sig)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), addr)
}

func TestRecoverSigner_Invalid(t *testing.T) {
	hash := ethcrypto.Keccak256Hash([]byte("x"))

	_, err := RecoverSigner(hash, types.TransmitterSignature{V: 2})
	require.ErrorIs(t, err, types.ErrInvalidSignature)

	// all zero R and S
	_, err = RecoverSigner(hash, types.TransmitterSignature{V: 27})
	require.ErrorIs(t, err, types.ErrInvalidSignature)
}

func TestSecp256K1Signer(t *testing.T) {
	signer, err := NewInMemorySecp256K1Signer()
	require.NoError(t, err)
	sig, err := signer.SignBytes([]byte("data"))
	require.NoError(t, err)

	verifier, err := signer.Verifier()
	require.NoError(t, err)
	require.NoError(t, verifier.VerifyBytes(sig, []byte("data")))
	require.ErrorIs(t, verifier.VerifyBytes(sig, []byte("other data")), types.ErrInvalidSignature)

	pub, err := verifier.MarshalPublicKey()
	require.NoError(t, err)
	v2, err := NewVerifierSecp256k1(pub)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), v2.Address())

	priv, err := signer.MarshalPrivateKey()
	require.NoError(t, err)
	restored, err := NewInMemorySecp256K1SignerFromKey(priv)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), restored.Address())

	_, err = NewInMemorySecp256K1SignerFromKey([]byte{1})
	require.Error(t, err)
}

func TestEd25519Signer(t *testing.T) {
	signer, err := NewInMemoryEd25519Signer()
	require.NoError(t, err)
	sig, err := signer.SignBytes([]byte("request"))
	require.NoError(t, err)

	verifier := NewEd25519Verifier(signer.Address())
	require.NoError(t, verifier.VerifyBytes(sig, []byte("request")))
	require.ErrorIs(t, verifier.VerifyBytes(sig, []byte("tampered")), types.ErrInvalidSignature)

	seed, err := signer.MarshalPrivateKey()
	require.NoError(t, err)
	restored, err := NewInMemoryEd25519SignerFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), restored.Address())

	_, err = NewInMemoryEd25519SignerFromSeed([]byte{1, 2})
	require.Error(t, err)
}
