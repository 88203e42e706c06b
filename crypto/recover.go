package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/photon-ccm/photon/types"
)

/*
EthSignedMessageHash returns the digest transmitters actually sign for the
operation hash, ie keccak256("\x19Ethereum Signed Message:\n32" || opHash).
*/
func EthSignedMessageHash(opHash types.Hash) types.Hash {
	return common.BytesToHash(accounts.TextHash(opHash[:]))
}

/*
RecoverSigner recovers the Ethereum address of the key which produced "sig"
over "hash". "hash" is the digest that was signed, use EthSignedMessageHash
to get it from the op hash.

V is accepted both in 0/1 and 27/28 form. Any failure is reported as
types.ErrInvalidSignature.
*/
func RecoverSigner(hash types.Hash, sig types.TransmitterSignature) (types.EthAddress, error) {
	v := sig.V % 27
	if v > 1 {
		return types.EthAddress{}, fmt.Errorf("%w: invalid recovery id %d", types.ErrInvalidSignature, sig.V)
	}
	raw := sig.Bytes()
	raw[64] = v
	pub, err := ethcrypto.SigToPub(hash[:], raw)
	if err != nil {
		return types.EthAddress{}, fmt.Errorf("%w: %w", types.ErrInvalidSignature, err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// RecoverOpSigner recovers the transmitter address from signature over the op hash.
func RecoverOpSigner(opHash types.Hash, sig types.TransmitterSignature) (types.EthAddress, error) {
	return RecoverSigner(EthSignedMessageHash(opHash), sig)
}
