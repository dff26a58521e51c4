// Copyright 2025 SP Consortium
//
// Circuit S (settlement netting), per spec §4.1. Proves that three
// operators' net positions were derived correctly from their six directed
// bilateral obligations, that the positions sum to zero (conservation),
// and that every value is within its declared range.
package zk

import (
	"github.com/consensys/gnark/frontend"
)

// NetOffset shifts signed net positions into the field's non-negative
// range: the circuit constrains `position + NetOffset` instead of
// `position` directly (spec §9, "negative numbers in field arithmetic").
// The same offset must be used by the witness builder and nowhere else.
const NetOffset = 1_000_000

// Range bounds from spec §4.1.
const (
	MaxBilateralCents    = 10_000_000
	MaxNetSettlementCount = 6
	MaxTotalNetCents      = 30_000_000
	MaxSavingsPercentage  = 100
	MaxOffsetPosition     = 1_500_000
)

// NettingCircuit proves the triangular-netting identity for three
// participants A, B, C with six directed bilaterals: AB, AC, BA, BC, CA, CB
// (read "AB" as "A owes B"). Net positions are offset-added to stay
// non-negative in the field.
type NettingCircuit struct {
	// Private witnesses: six directed bilateral amounts.
	AB, AC frontend.Variable
	BA, BC frontend.Variable
	CA, CB frontend.Variable

	// Private witnesses: offset-added net positions.
	ANetOffset, BNetOffset, CNetOffset frontend.Variable

	// Public inputs.
	NetSettlementCount frontend.Variable `gnark:",public"`
	TotalNetAmount     frontend.Variable `gnark:",public"`
	PeriodHash         frontend.Variable `gnark:",public"`
	SavingsPercentage  frontend.Variable `gnark:",public"`
}

// Define implements frontend.Circuit.
func (c *NettingCircuit) Define(api frontend.API) error {
	offset := frontend.Variable(NetOffset)

	// Net-position identity: A_net + offset = (AB+AC) - (BA+CA) + offset,
	// and analogously for B and C. Outgoing (AB, AC) minus incoming
	// (BA, CA) is A's net position, per spec §4.3 "outgoing - incoming".
	aOut := api.Add(c.AB, c.AC)
	aIn := api.Add(c.BA, c.CA)
	api.AssertIsEqual(c.ANetOffset, api.Add(api.Sub(aOut, aIn), offset))

	bOut := api.Add(c.BA, c.BC)
	bIn := api.Add(c.AB, c.CB)
	api.AssertIsEqual(c.BNetOffset, api.Add(api.Sub(bOut, bIn), offset))

	cOut := api.Add(c.CA, c.CB)
	cIn := api.Add(c.AC, c.BC)
	api.AssertIsEqual(c.CNetOffset, api.Add(api.Sub(cOut, cIn), offset))

	// Conservation law: the signed sum is zero, i.e. the offset-added sum
	// is exactly 3*offset.
	sum := api.Add(c.ANetOffset, api.Add(c.BNetOffset, c.CNetOffset))
	api.AssertIsEqual(sum, frontend.Variable(3*NetOffset))

	// Range discipline.
	for _, bilateral := range []frontend.Variable{c.AB, c.AC, c.BA, c.BC, c.CA, c.CB} {
		api.AssertIsLessOrEqual(bilateral, frontend.Variable(MaxBilateralCents))
	}
	api.AssertIsLessOrEqual(c.NetSettlementCount, frontend.Variable(MaxNetSettlementCount))
	api.AssertIsLessOrEqual(c.TotalNetAmount, frontend.Variable(MaxTotalNetCents))
	api.AssertIsLessOrEqual(c.SavingsPercentage, frontend.Variable(MaxSavingsPercentage))
	for _, netOffset := range []frontend.Variable{c.ANetOffset, c.BNetOffset, c.CNetOffset} {
		api.AssertIsLessOrEqual(netOffset, frontend.Variable(MaxOffsetPosition))
	}

	api.AssertIsDifferent(c.PeriodHash, -1)

	return nil
}

// NettingWitness holds the values assigned to a NettingCircuit instance for
// a single triangular-netting proposal.
type NettingWitness struct {
	AB, AC int64
	BA, BC int64
	CA, CB int64

	// ANet, BNet, CNet are the true signed net positions (outgoing minus
	// incoming); assignment() adds NetOffset before assigning to the
	// circuit.
	ANet, BNet, CNet int64

	NetSettlementCount uint64
	TotalNetAmount     uint64
	PeriodHash         [32]byte
	SavingsPercentage  uint64
}

// CheckConservation reports whether ANet+BNet+CNet = 0, independent of
// proving.
func (w NettingWitness) CheckConservation() bool {
	return w.ANet+w.BNet+w.CNet == 0
}

func (w NettingWitness) assignment() *NettingCircuit {
	return &NettingCircuit{
		AB: w.AB, AC: w.AC,
		BA: w.BA, BC: w.BC,
		CA: w.CA, CB: w.CB,
		ANetOffset: w.ANet + NetOffset,
		BNetOffset: w.BNet + NetOffset,
		CNetOffset: w.CNet + NetOffset,

		NetSettlementCount: w.NetSettlementCount,
		TotalNetAmount:     w.TotalNetAmount,
		PeriodHash:         beToField(w.PeriodHash[:]),
		SavingsPercentage:  w.SavingsPercentage,
	}
}

func (w NettingWitness) publicAssignment() *NettingCircuit {
	return &NettingCircuit{
		NetSettlementCount: w.NetSettlementCount,
		TotalNetAmount:     w.TotalNetAmount,
		PeriodHash:         beToField(w.PeriodHash[:]),
		SavingsPercentage:  w.SavingsPercentage,
	}
}
