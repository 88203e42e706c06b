package types

type EventKind string

const (
	EventProposalLoaded   EventKind = "ProposalLoaded"
	EventProposalApproved EventKind = "ProposalApproved"
	EventProposalExecuted EventKind = "ProposalExecuted"
	EventPropose          EventKind = "ProposeEvent"
)

// ProposalEvent is emitted when an inbound operation changes status.
type ProposalEvent struct {
	_        struct{} `cbor:",toarray"`
	OpHash   Hash     `json:"opHash"`
	Executor Address  `json:"executor"`
}

// ProposeEvent is an outbound proposal for another chain.
type ProposeEvent struct {
	_                struct{}   `cbor:",toarray"`
	ProtocolID       ProtocolID `json:"protocolId"`
	Nonce            uint64     `json:"nonce"`
	DstChainID       ChainID    `json:"dstChainId"`
	ProtocolAddress  Bytes      `json:"protocolAddress"`
	FunctionSelector Bytes      `json:"functionSelector"`
	Params           Bytes      `json:"params"`
}

/*
Event is an entry of the endpoint event log. Exactly one of Proposal and
Propose is set, depending on Kind.
*/
type Event struct {
	_        struct{}       `cbor:",toarray"`
	Seq      uint64         `json:"seq"`
	Kind     EventKind      `json:"kind"`
	Proposal *ProposalEvent `json:"proposal,omitempty"`
	Propose  *ProposeEvent  `json:"propose,omitempty"`
}
