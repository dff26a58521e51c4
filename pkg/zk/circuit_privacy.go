// Copyright 2025 SP Consortium
//
// Circuit P (per-record privacy), per spec §4.1. Proves that a BCE record's
// wholesale charge was computed correctly from call/data/SMS usage and
// per-unit rates, without revealing the usage or rates to the verifier.
package zk

import (
	"github.com/consensys/gnark/frontend"
)

// Range bounds from spec §4.1, chosen tight enough that the linear
// accounting identity cannot wrap the BN254 scalar field modulus.
const (
	MaxCallMinutes = 100_000
	MaxDataMB      = 1_000_000
	MaxSMSCount    = 100_000
	MaxCallRate    = 200
	MaxDataRate    = 50
	MaxSMSRate     = 100
	MaxTotalCents  = 100_000_000
)

// PrivacyCircuit proves the linear accounting identity
//
//	total = call_minutes*call_rate + data_mb*data_rate + sms_count*sms_rate
//
// holds exactly, and that every witness lies within its declared range, all
// without revealing usage or rates. PrivacySalt and CommitmentRandomness
// bind the proof to a specific record without being constrained directly —
// they exist so that two records with identical usage/rate tuples produce
// distinct proofs.
type PrivacyCircuit struct {
	// Private witnesses.
	CallMinutes          frontend.Variable
	DataMB               frontend.Variable
	SMSCount             frontend.Variable
	CallRate             frontend.Variable
	DataRate             frontend.Variable
	SMSRate              frontend.Variable
	PrivacySalt          frontend.Variable
	CommitmentRandomness frontend.Variable

	// Public inputs.
	TotalChargesCents frontend.Variable `gnark:",public"`
	PeriodHash        frontend.Variable `gnark:",public"`
	NetworkPairHash    frontend.Variable `gnark:",public"`
}

// Define implements frontend.Circuit.
func (c *PrivacyCircuit) Define(api frontend.API) error {
	callCharge := api.Mul(c.CallMinutes, c.CallRate)
	dataCharge := api.Mul(c.DataMB, c.DataRate)
	smsCharge := api.Mul(c.SMSCount, c.SMSRate)

	computedTotal := api.Add(callCharge, api.Add(dataCharge, smsCharge))
	api.AssertIsEqual(c.TotalChargesCents, computedTotal)

	api.AssertIsLessOrEqual(c.CallMinutes, frontend.Variable(MaxCallMinutes))
	api.AssertIsLessOrEqual(c.DataMB, frontend.Variable(MaxDataMB))
	api.AssertIsLessOrEqual(c.SMSCount, frontend.Variable(MaxSMSCount))
	api.AssertIsLessOrEqual(c.CallRate, frontend.Variable(MaxCallRate))
	api.AssertIsLessOrEqual(c.DataRate, frontend.Variable(MaxDataRate))
	api.AssertIsLessOrEqual(c.SMSRate, frontend.Variable(MaxSMSRate))
	api.AssertIsLessOrEqual(c.TotalChargesCents, frontend.Variable(MaxTotalCents))

	// Intermediate products are bounded too, so a prover can't pick
	// near-modulus values that cancel out in the sum (spec §9, "exact-cent
	// accounting inside a finite field").
	api.AssertIsLessOrEqual(callCharge, frontend.Variable(MaxTotalCents))
	api.AssertIsLessOrEqual(dataCharge, frontend.Variable(MaxTotalCents))
	api.AssertIsLessOrEqual(smsCharge, frontend.Variable(MaxTotalCents))

	// Bind PeriodHash/NetworkPairHash/PrivacySalt/CommitmentRandomness into
	// the constraint system so the proof is specific to this record's
	// context even though their values aren't otherwise constrained.
	api.AssertIsDifferent(c.PeriodHash, -1)
	api.AssertIsDifferent(c.NetworkPairHash, -1)
	binder := api.Add(c.PrivacySalt, c.CommitmentRandomness)
	api.AssertIsDifferent(binder, -1)

	return nil
}

// PrivacyWitness holds the values assigned to a PrivacyCircuit instance for
// a single BCE record.
type PrivacyWitness struct {
	CallMinutes          uint64
	DataMB               uint64
	SMSCount             uint64
	CallRate             uint64
	DataRate             uint64
	SMSRate              uint64
	PrivacySalt          uint64
	CommitmentRandomness uint64

	TotalChargesCents uint64
	PeriodHash        [32]byte
	NetworkPairHash   [32]byte
}

// CheckIdentity reports whether the linear accounting identity holds for w,
// independent of proving — used to fail fast before spending time on a
// Groth16 proof that can never verify (spec §4.1, "failing fast beats
// failing inside the prover").
func (w PrivacyWitness) CheckIdentity() bool {
	total := w.CallMinutes*w.CallRate + w.DataMB*w.DataRate + w.SMSCount*w.SMSRate
	return total == w.TotalChargesCents
}

func (w PrivacyWitness) assignment() *PrivacyCircuit {
	return &PrivacyCircuit{
		CallMinutes:          w.CallMinutes,
		DataMB:               w.DataMB,
		SMSCount:             w.SMSCount,
		CallRate:             w.CallRate,
		DataRate:             w.DataRate,
		SMSRate:              w.SMSRate,
		PrivacySalt:          w.PrivacySalt,
		CommitmentRandomness: w.CommitmentRandomness,
		TotalChargesCents:    w.TotalChargesCents,
		PeriodHash:           beToField(w.PeriodHash[:]),
		NetworkPairHash:      beToField(w.NetworkPairHash[:]),
	}
}

// publicAssignment builds the public-only assignment used for verification.
func (w PrivacyWitness) publicAssignment() *PrivacyCircuit {
	return &PrivacyCircuit{
		TotalChargesCents: w.TotalChargesCents,
		PeriodHash:        beToField(w.PeriodHash[:]),
		NetworkPairHash:   beToField(w.NetworkPairHash[:]),
	}
}
