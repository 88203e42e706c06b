package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TransmitterSignature is recoverable secp256k1 signature. V is 0/1 or 27/28.
type TransmitterSignature struct {
	_ struct{} `cbor:",toarray"`
	V uint8    `json:"v"`
	R Bytes32  `json:"r"`
	S Bytes32  `json:"s"`
}

// SignatureFromBytes converts 65 byte [R || S || V] signature.
func SignatureFromBytes(b []byte) (TransmitterSignature, error) {
	var sig TransmitterSignature
	if len(b) != 65 {
		return sig, fmt.Errorf("%w: expected 65 bytes, got %d", ErrInvalidSignature, len(b))
	}
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	sig.V = b[64]
	return sig, nil
}

// Bytes returns 65 byte [R || S || V] form of the signature with V normalized to 0/1.
func (s TransmitterSignature) Bytes() []byte {
	b := make([]byte, 65)
	copy(b[:32], s.R[:])
	copy(b[32:64], s.S[:])
	b[64] = s.V % 27
	return b
}

func (s TransmitterSignature) String() string {
	return hexutil.Encode(s.Bytes())
}
