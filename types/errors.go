package types

import (
	"errors"
	"fmt"
)

/*
Error is a failure of an endpoint instruction. Every instruction error
has a stable numeric code so that it can be reported over the host API
and matched by clients regardless of the wrapping context.

Use errors.Is with the exported sentinels to check for a particular
failure and CodeOf to get the code of an arbitrary (wrapped) error.
*/
type Error struct {
	Code uint32
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d)", e.Name, e.Code)
}

func newError(code uint32, name string) *Error {
	return &Error{Code: code, Name: name}
}

// Codes 6000..6029 follow the deployed endpoint program.
var (
	ErrIsNotAdmin                    = newError(6000, "IsNotAdmin")
	ErrProtocolNotInit               = newError(6001, "ProtocolNotInit")
	ErrInvalidSignature              = newError(6002, "InvalidSignature")
	ErrOpIsNotForThisChain           = newError(6003, "OpIsNotForThisChain")
	ErrInvalidEndpoint               = newError(6004, "InvalidEndpoint")
	ErrOpStateInvalid                = newError(6005, "OpStateInvalid")
	ErrCachedOpHashMismatch          = newError(6006, "CachedOpHashMismatch")
	ErrProtocolAddressMismatch       = newError(6007, "ProtocolAddressMismatch")
	ErrTargetProtocolMismatch        = newError(6008, "TargetProtocolMismatch")
	ErrExecutorIsNotAllowed          = newError(6009, "ExecutorIsNotAllowed")
	ErrProposerIsNotAllowed          = newError(6010, "ProposerIsNotAllowed")
	ErrOperationNotApproved          = newError(6011, "OperationNotApproved")
	ErrInvalidProtoMsg               = newError(6012, "InvalidProtoMsg")
	ErrInvalidGovMsg                 = newError(6013, "InvalidGovMsg")
	ErrInvalidMethodSelector         = newError(6014, "InvalidMethodSelector")
	ErrInvalidOpData                 = newError(6015, "InvalidOpData")
	ErrInvalidAddress                = newError(6016, "InvalidAddress")
	ErrProtocolAddressNotProvided    = newError(6017, "ProtocolAddressNotProvided")
	ErrNoTransmittersAllowed         = newError(6018, "NoTransmittersAllowed")
	ErrMaxTransmittersExceeded       = newError(6019, "MaxTransmittersExceeded")
	ErrMaxExecutorsExceeded          = newError(6020, "MaxExecutorsExceeded")
	ErrExecutorIsAlreadyAllowed      = newError(6021, "ExecutorIsAlreadyAllowed")
	ErrProposerIsAlreadyAllowed      = newError(6022, "ProposerIsAlreadyAllowed")
	ErrTryingToRemoveLastGovExecutor = newError(6023, "TryingToRemoveLastGovExecutor")
	ErrInvalidExecutorAddress        = newError(6024, "InvalidExecutorAddress")
	ErrInvalidProposerAddress        = newError(6025, "InvalidProposerAddress")
	ErrMaxProposersExceeded          = newError(6026, "MaxProposersExceeded")
	ErrConsensusTargetRateTooLow     = newError(6027, "ConsensusTargetRateTooLow")
	ErrConsensusTargetRateTooHigh    = newError(6028, "ConsensusTargetRateTooHigh")
	ErrSelectorTooBig                = newError(6029, "SelectorTooBig")

	ErrAlreadyInitialized          = newError(6030, "AlreadyInitialized")
	ErrMaxSignersExceeded          = newError(6031, "MaxSignersExceeded")
	ErrTransmitterIsAlreadyAllowed = newError(6032, "TransmitterIsAlreadyAllowed")
	ErrTransmitterIsNotAllowed     = newError(6033, "TransmitterIsNotAllowed")
	ErrProtocolAlreadyInit         = newError(6034, "ProtocolAlreadyInit")
	ErrNoExecutorsAllowed          = newError(6035, "NoExecutorsAllowed")
)

var allErrors = []*Error{
	ErrIsNotAdmin, ErrProtocolNotInit, ErrInvalidSignature, ErrOpIsNotForThisChain,
	ErrInvalidEndpoint, ErrOpStateInvalid, ErrCachedOpHashMismatch, ErrProtocolAddressMismatch,
	ErrTargetProtocolMismatch, ErrExecutorIsNotAllowed, ErrProposerIsNotAllowed,
	ErrOperationNotApproved, ErrInvalidProtoMsg, ErrInvalidGovMsg, ErrInvalidMethodSelector,
	ErrInvalidOpData, ErrInvalidAddress, ErrProtocolAddressNotProvided, ErrNoTransmittersAllowed,
	ErrMaxTransmittersExceeded, ErrMaxExecutorsExceeded, ErrExecutorIsAlreadyAllowed,
	ErrProposerIsAlreadyAllowed, ErrTryingToRemoveLastGovExecutor, ErrInvalidExecutorAddress,
	ErrInvalidProposerAddress, ErrMaxProposersExceeded, ErrConsensusTargetRateTooLow,
	ErrConsensusTargetRateTooHigh, ErrSelectorTooBig,
	ErrAlreadyInitialized, ErrMaxSignersExceeded, ErrTransmitterIsAlreadyAllowed,
	ErrTransmitterIsNotAllowed, ErrProtocolAlreadyInit, ErrNoExecutorsAllowed,
}

/*
CodeOf returns the instruction error "err" wraps. The second return value
is false when "err" is not (and doesn't wrap) an instruction error.
*/
func CodeOf(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrorByCode returns sentinel error for the code, nil when the code is unknown.
func ErrorByCode(code uint32) *Error {
	for _, e := range allErrors {
		if e.Code == code {
			return e
		}
	}
	return nil
}
