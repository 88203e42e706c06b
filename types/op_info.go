package types

import (
	"fmt"
	"slices"
)

// OpStatus is the lifecycle state of the operation. Status only moves forward.
type OpStatus uint8

const (
	OpStatusNone OpStatus = iota
	OpStatusInit
	OpStatusSigned
	OpStatusExecuted
)

// MaxSigners is the capacity of the unique signers list of an operation.
const MaxSigners = 20

func (s OpStatus) String() string {
	switch s {
	case OpStatusNone:
		return "None"
	case OpStatusInit:
		return "Init"
	case OpStatusSigned:
		return "Signed"
	case OpStatusExecuted:
		return "Executed"
	default:
		return fmt.Sprintf("OpStatus(%d)", uint8(s))
	}
}

func (s OpStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OpStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "None":
		*s = OpStatusNone
	case "Init":
		*s = OpStatusInit
	case "Signed":
		*s = OpStatusSigned
	case "Executed":
		*s = OpStatusExecuted
	default:
		return fmt.Errorf("unknown op status %q", b)
	}
	return nil
}

// OpInfo is the persisted record of an operation, keyed by the op hash.
type OpInfo struct {
	_             struct{}       `cbor:",toarray"`
	Status        OpStatus       `json:"status"`
	UniqueSigners []EthAddress   `json:"uniqueSigners"`
	OpData        *OperationData `json:"opData"`
}

// HasSigner returns true when "addr" has already signed the operation.
func (oi *OpInfo) HasSigner(addr EthAddress) bool {
	return slices.Contains(oi.UniqueSigners, addr)
}

/*
AddSigner records "addr" as a signer. Returns false without error when the
address has already been recorded. When the signer list is full the signers
"isCurrent" rejects (transmitters removed since they signed) are dropped to
make room, they wouldn't count towards the consensus anyway.
*/
func (oi *OpInfo) AddSigner(addr EthAddress, isCurrent func(EthAddress) bool) (bool, error) {
	if oi.HasSigner(addr) {
		return false, nil
	}
	if len(oi.UniqueSigners) >= MaxSigners && isCurrent != nil {
		oi.UniqueSigners = slices.DeleteFunc(oi.UniqueSigners, func(a EthAddress) bool { return !isCurrent(a) })
	}
	if len(oi.UniqueSigners) >= MaxSigners {
		return false, fmt.Errorf("%w: operation already has %d signers", ErrMaxSignersExceeded, len(oi.UniqueSigners))
	}
	oi.UniqueSigners = append(oi.UniqueSigners, addr)
	return true, nil
}

/*
Advance moves the operation to status "next", it must be the status directly
following the current one.
*/
func (oi *OpInfo) Advance(next OpStatus) error {
	if next != oi.Status+1 || next > OpStatusExecuted {
		return fmt.Errorf("%w: can't move from %s to %s", ErrOpStateInvalid, oi.Status, next)
	}
	oi.Status = next
	return nil
}
