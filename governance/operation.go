package governance

import (
	"fmt"

	"github.com/photon-ccm/photon/types"
)

// Operation is the discriminant of a governance operation.
type Operation uint32

const (
	AddAllowedProtocol Operation = iota
	AddAllowedProtocolAddress
	RemoveAllowedProtocolAddress
	AddAllowedProposerAddress
	RemoveAllowedProposerAddress
	AddExecutor
	RemoveExecutor
	AddTransmitters
	RemoveTransmitters
	UpdateTransmitters
	SetConsensusTargetRate
)

var operationNames = [...]string{
	AddAllowedProtocol:           "AddAllowedProtocol",
	AddAllowedProtocolAddress:    "AddAllowedProtocolAddress",
	RemoveAllowedProtocolAddress: "RemoveAllowedProtocolAddress",
	AddAllowedProposerAddress:    "AddAllowedProposerAddress",
	RemoveAllowedProposerAddress: "RemoveAllowedProposerAddress",
	AddExecutor:                  "AddExecutor",
	RemoveExecutor:               "RemoveExecutor",
	AddTransmitters:              "AddTransmitters",
	RemoveTransmitters:           "RemoveTransmitters",
	UpdateTransmitters:           "UpdateTransmitters",
	SetConsensusTargetRate:       "SetConsensusTargetRate",
}

func (op Operation) String() string {
	if int(op) < len(operationNames) {
		return operationNames[op]
	}
	return fmt.Sprintf("Operation(%d)", uint32(op))
}

// ParseOperation returns operation by its name, names are case-sensitive.
func ParseOperation(name string) (Operation, error) {
	for i, n := range operationNames {
		if n == name {
			return Operation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown governance operation %q", types.ErrInvalidGovMsg, name)
}

/*
OperationFromSelector resolves the governance operation the selector refers
to. ByCode selector carries the discriminant as 1 to 4 byte big-endian
integer, ByName selector carries the name of the operation.
*/
func OperationFromSelector(sel types.FunctionSelector) (Operation, error) {
	switch sel.Kind() {
	case types.SelectorByCode:
		code := sel.Code()
		if len(code) > 4 {
			return 0, fmt.Errorf("%w: governance operation code is %d bytes, max 4", types.ErrInvalidGovMsg, len(code))
		}
		var v uint32
		for _, b := range code {
			v = v<<8 | uint32(b)
		}
		if int64(v) >= int64(len(operationNames)) {
			return 0, fmt.Errorf("%w: unknown governance operation code %d", types.ErrInvalidGovMsg, v)
		}
		return Operation(v), nil
	case types.SelectorByName:
		return ParseOperation(sel.Name())
	default:
		return 0, fmt.Errorf("%w: governance operation requires selector, got %s", types.ErrInvalidGovMsg, sel)
	}
}

// CodeSelector returns single byte ByCode selector of the operation.
func (op Operation) CodeSelector() types.FunctionSelector {
	return types.SelectorByCodeOf([]byte{byte(op)})
}

// NameSelector returns ByName selector of the operation.
func (op Operation) NameSelector() types.FunctionSelector {
	return types.SelectorByNameOf(op.String())
}
