// Copyright 2025 SP Consortium
//
// Package chainstore implements the content-addressed block store (C3),
// keyed by primitives.Hash, with named head pointers and namespaced
// contract state/code, per spec §4.5. Types here are the Go-native
// equivalent of the distilled source's blockchain/block.rs.
package chainstore

import (
	"time"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// BlockKind distinguishes the two block variants making up the Block sum
// type.
type BlockKind uint8

const (
	KindMicro BlockKind = iota
	KindMacro
)

// Header fields shared by both block kinds, per spec §3.
type Header struct {
	Network     string          `json:"network"`
	Version     uint16          `json:"version"`
	BlockNumber uint64          `json:"block_number"`
	Timestamp   time.Time       `json:"timestamp"`
	ParentHash  primitives.Hash `json:"parent_hash"`
	Seed        primitives.Hash `json:"seed"`
	ExtraData   []byte          `json:"extra_data,omitempty"`
	StateRoot   primitives.Hash `json:"state_root"`
	BodyRoot    primitives.Hash `json:"body_root"`
	HistoryRoot primitives.Hash `json:"history_root"`

	// Round is meaningful only for Macro headers (the BFT round the block
	// was finalized in); zero for Micro.
	Round uint32 `json:"round,omitempty"`
	// ParentElectionHash is meaningful only for Macro headers.
	ParentElectionHash primitives.Hash `json:"parent_election_hash,omitempty"`
}

// Block is the sum type Micro | Macro. Exactly one of Micro/Macro is
// non-nil, selected by Kind.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Micro *MicroBody `json:"micro,omitempty"`
	Macro *MacroBody `json:"macro,omitempty"`

	Header Header `json:"header"`
}

// MicroBody carries the CDR/settlement transactions included by a regular
// block.
type MicroBody struct {
	Transactions []Transaction `json:"transactions"`
}

// MacroBody is produced at epoch boundaries; Validators is populated only
// on election blocks (block_number ≡ 0 mod EpochLength*BatchLength).
type MacroBody struct {
	Validators     []ValidatorInfo   `json:"validators,omitempty"`
	LostRewardSet  []primitives.Hash `json:"lost_reward_set"`
	DisabledSet    []primitives.Hash `json:"disabled_set"`
	Transactions   []Transaction     `json:"transactions"`
}

// Hash returns the content hash of the block's header, matching the
// distilled source's Block::hash (hash of the header only, not the body).
func (b *Block) Hash() (primitives.Hash, error) {
	return primitives.HashJSON(b.Header)
}

// BlockNumber returns the block's height.
func (b *Block) BlockNumber() uint64 { return b.Header.BlockNumber }

// Transactions returns the block's transaction list regardless of kind.
func (b *Block) Transactions() []Transaction {
	switch b.Kind {
	case KindMicro:
		if b.Micro == nil {
			return nil
		}
		return b.Micro.Transactions
	case KindMacro:
		if b.Macro == nil {
			return nil
		}
		return b.Macro.Transactions
	default:
		return nil
	}
}

// NewMicroBlock builds a Micro block with the given header and
// transactions.
func NewMicroBlock(header Header, txs []Transaction) *Block {
	return &Block{Kind: KindMicro, Header: header, Micro: &MicroBody{Transactions: txs}}
}

// NewMacroBlock builds a Macro block. validators must be non-nil only when
// header.BlockNumber is an election boundary.
func NewMacroBlock(header Header, validators []ValidatorInfo, lostReward, disabled []primitives.Hash, txs []Transaction) *Block {
	return &Block{
		Kind:   KindMacro,
		Header: header,
		Macro: &MacroBody{
			Validators:    validators,
			LostRewardSet: lostReward,
			DisabledSet:   disabled,
			Transactions:  txs,
		},
	}
}

// TransactionKind tags the TransactionData sum type.
type TransactionKind uint8

const (
	DataBasic TransactionKind = iota
	DataCDRRecord
	DataSettlement
	DataValidatorUpdate
)

// Transaction is the wire/ledger transaction envelope, per spec §3.
type Transaction struct {
	Sender              primitives.Hash `json:"sender"`
	Recipient           primitives.Hash `json:"recipient"`
	Value               uint64          `json:"value"`
	Fee                 uint64          `json:"fee"`
	ValidityStartHeight uint64          `json:"validity_start_height"`

	DataKind   TransactionKind    `json:"data_kind"`
	CDRRecord  *CDRTxData         `json:"cdr_record,omitempty"`
	Settlement *SettlementTxData  `json:"settlement,omitempty"`
	Validator  *ValidatorTxData   `json:"validator,omitempty"`

	Signature      []byte `json:"signature"`
	SignatureProof []byte `json:"signature_proof,omitempty"`
}

// CDRTxData is the CDRRecord transaction-data variant: the encrypted batch
// payload plus the circuit-P proof attesting its accounting identity, per
// spec §4.1/§4.4 (the batch announcement, once accepted, is committed to
// the chain through this transaction kind).
type CDRTxData struct {
	RecordType     primitives.RecordType `json:"record_type"`
	HomeNetwork    string                `json:"home_network"`
	VisitedNetwork string                `json:"visited_network"`
	EncryptedData  []byte                `json:"encrypted_data"`
	ZKProof        []byte                `json:"zk_proof"`
}

// SettlementTxData is the Settlement transaction-data variant.
type SettlementTxData struct {
	CreditorNetwork string `json:"creditor_network"`
	DebtorNetwork   string `json:"debtor_network"`
	AmountCents     uint64 `json:"amount_cents"`
	Currency        string `json:"currency"`
	Period          string `json:"period"`
}

// ValidatorAction enumerates validator-set mutation requests.
type ValidatorAction string

const (
	ActionCreateValidator     ValidatorAction = "create_validator"
	ActionUpdateValidator     ValidatorAction = "update_validator"
	ActionDeactivateValidator ValidatorAction = "deactivate_validator"
	ActionReactivateValidator ValidatorAction = "reactivate_validator"
)

// ValidatorTxData is the ValidatorUpdate transaction-data variant.
type ValidatorTxData struct {
	Action            ValidatorAction `json:"action"`
	ValidatorAddress  primitives.Hash `json:"validator_address"`
	StakeCents        uint64          `json:"stake_cents"`
}

// Hash returns the content hash of the transaction.
func (t Transaction) Hash() (primitives.Hash, error) {
	return primitives.HashJSON(t)
}

// IsValid implements the minimal invariant from spec §3: fee > 0 and a
// non-empty signature.
func (t Transaction) IsValid() bool {
	return t.Fee > 0 && len(t.Signature) > 0
}

// ValidatorInfo describes one member of the active validator set, per
// spec §3.
type ValidatorInfo struct {
	Address       primitives.Hash `json:"address"`
	BLSSigningKey []byte          `json:"bls_signing_key"`
	VotingKey     []byte          `json:"voting_key"`
	RewardAddress primitives.Hash `json:"reward_address"`
	SignalData    []byte          `json:"signal_data,omitempty"`
	InactiveFrom  *uint64         `json:"inactive_from,omitempty"`
	JailedFrom    *uint64         `json:"jailed_from,omitempty"`
}

// ActiveAt reports whether the validator is active at epoch e: it has
// begun (implicit, validators only exist once recorded) and, if
// InactiveFrom is set, e is strictly before it.
func (v ValidatorInfo) ActiveAt(epoch uint64) bool {
	return v.InactiveFrom == nil || epoch < *v.InactiveFrom
}

// Jailed reports whether the validator is jailed at epoch e.
func (v ValidatorInfo) Jailed(epoch uint64) bool {
	return v.JailedFrom != nil && epoch >= *v.JailedFrom
}
