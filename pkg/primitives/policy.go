package primitives

import "time"

// Policy constants, per spec §6 and §3.
const (
	// EpochLength is the number of blocks in an epoch (macro block interval).
	EpochLength uint32 = 32

	// BatchLength is the number of epochs in an election-block interval:
	// election blocks occur every EpochLength*BatchLength blocks.
	BatchLength uint32 = 8

	// BlockTime is the target inter-block interval.
	BlockTime = 1000 * time.Millisecond

	// MinValidatorsForLiveness is the smallest validator set size the
	// three-phase protocol can make progress with.
	MinValidatorsForLiveness = 3

	// DefaultFee is applied to transactions that don't set one explicitly.
	DefaultFee uint64 = 100

	// DefaultCurrency is used for a BCE record whose currency is unset.
	DefaultCurrency = "EUR"

	// DefaultBilateralExpiry is how long a bilateral settlement proposal
	// stays open before the sweep marks it Expired.
	DefaultBilateralExpiry = 60 * time.Minute

	// DefaultNettingExpiry is the triangular-netting proposal expiry.
	DefaultNettingExpiry = 30 * time.Minute

	// ConsensusRoundTimeout is the recommended view-change trigger.
	ConsensusRoundTimeout = 30 * time.Second
)

// IsEpochBoundary reports whether blockNumber starts a macro block.
func IsEpochBoundary(blockNumber uint64) bool {
	return blockNumber%uint64(EpochLength) == 0
}

// IsElectionBoundary reports whether blockNumber starts an election block
// (a macro block that may rotate the validator set).
func IsElectionBoundary(blockNumber uint64) bool {
	return blockNumber%(uint64(EpochLength)*uint64(BatchLength)) == 0
}

// Quorum returns floor(2n/3)+1, the vote count needed to commit or to
// accept a triangular-netting proposal among n participants.
func Quorum(n int) int {
	return (2*n)/3 + 1
}
