// Copyright 2025 SP Consortium
//
// Package settlement implements the bilateral and triangular-netting
// negotiation state machines (C7), per spec §4.3. Grounded on the
// teacher's pkg/batch status/lifecycle idiom (status enums, expiry
// sweeps, guarded in-memory maps) adapted from anchoring-batch lifecycle
// to settlement-proposal lifecycle.
package settlement

import (
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// Status is a bilateral settlement proposal's lifecycle state.
type Status string

const (
	StatusProposed      Status = "proposed"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusCounterProposed Status = "counter_proposed"
	StatusUnderReview   Status = "under_review"
	StatusFinalized     Status = "finalized"
	StatusExpired       Status = "expired"
	StatusDisputed      Status = "disputed"
)

// RejectReason explains a Rejected status.
type RejectReason string

const (
	RejectAmountMismatch RejectReason = "amount_mismatch"
	RejectUnauthorized   RejectReason = "unauthorized"
	RejectDuplicate      RejectReason = "duplicate"
	RejectOther          RejectReason = "other"
)

// SettlementMethod is how a finalized settlement is actually paid out,
// off-protocol.
type SettlementMethod string

const (
	MethodBankTransfer   SettlementMethod = "bank_transfer"
	MethodCryptoTransfer SettlementMethod = "crypto_transfer"
	MethodClearingHouse  SettlementMethod = "clearing_house"
	MethodInKindServices SettlementMethod = "in_kind_services"
)

// InitiateSettlement is the initiator's opening bilateral proposal, per
// spec §4.3.
type InitiateSettlement struct {
	Creditor    primitives.OpId
	Debtor      primitives.OpId
	AmountCents uint64
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	BatchHash   primitives.Hash
	Nonce       uint64
}

// CounterOffer proposes a different amount than the one outstanding.
type CounterOffer struct {
	ProposalID    primitives.Hash
	CounterAmount uint64
}

// Proposal is the full negotiation state for one bilateral settlement,
// indexed by ProposalID. Invariant: Creditor != Debtor.
type Proposal struct {
	ProposalID  primitives.Hash
	Creditor    primitives.OpId
	Debtor      primitives.OpId
	AmountCents uint64
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	BatchHash   primitives.Hash
	BatchProofs [][]byte

	Status       Status
	RejectReason RejectReason
	ProposedAt   time.Time
	ExpiresAt    time.Time

	// CounterAmountCents holds the most recent counter-offer, if any.
	CounterAmountCents uint64
}

// Valid reports the proposal's structural invariant.
func (p *Proposal) Valid() bool {
	return p.Creditor != p.Debtor
}

// Instruction is the terminal artifact of a successful bilateral
// negotiation, emitted by ExecuteSettlement.
type Instruction struct {
	SettlementID primitives.Hash
	Creditor     primitives.OpId
	Debtor       primitives.OpId
	FinalAmount  uint64
	Currency     string
	DueDate      time.Time
	Method       SettlementMethod
}

// DisputeReason categorizes a DisputeInitiation.
type DisputeReason string

const (
	DisputeAmountDiscrepancy  DisputeReason = "amount_discrepancy"
	DisputeInvalidBCE         DisputeReason = "invalid_bce"
	DisputeUnauthorizedCharges DisputeReason = "unauthorized_charges"
	DisputeTechnicalError     DisputeReason = "technical_error"
	DisputeFraudSuspicion     DisputeReason = "fraud_suspicion"
)

// DisputeInitiation is emitted by any participant to contest a
// settlement; the protocol treats the settlement as terminal once
// disputed — resolution is off-protocol, per spec §4.3.
type DisputeInitiation struct {
	SettlementID    primitives.Hash
	Reason          DisputeReason
	DisputedAmount  *uint64
	EvidenceHash    primitives.Hash
}
