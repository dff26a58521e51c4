// Copyright 2025 SP Consortium
//
// Prover/verifier for circuits P and S, per spec §4.1. Generalizes the
// teacher's single-circuit BLSZKProver (pkg/crypto/bls_zkp) into a prover
// that holds compiled constraint systems and Groth16 keys for both the
// record-privacy and settlement-netting circuits.
package zk

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/sp-cdr/consortium-chain/pkg/errkind"
)

var curve = ecc.BN254

// circuitKeys bundles a compiled constraint system with its Groth16 keys.
type circuitKeys struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

func (k *circuitKeys) ready() bool { return k != nil && k.cs != nil && k.pk != nil && k.vk != nil }

// Prover holds the compiled circuits and Groth16 keys for both circuit P
// and circuit S. A single Prover is shared by the pipeline coordinator
// (C8) for proving and by every node for verification.
type Prover struct {
	mu       sync.RWMutex
	privacy  *circuitKeys
	netting  *circuitKeys
}

// NewProver returns an uninitialized prover; call Setup or LoadKeys before
// generating or verifying proofs.
func NewProver() *Prover {
	return &Prover{}
}

// Setup runs a local (non-ceremony) Groth16 setup for both circuits. This
// is suitable for development/test networks; production networks load keys
// produced by the trusted-setup ceremony instead (see pkg/zk/setup).
func (p *Prover) Setup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	privacyKeys, err := compileAndSetup(&PrivacyCircuit{})
	if err != nil {
		return fmt.Errorf("setup privacy circuit: %w", err)
	}
	nettingKeys, err := compileAndSetup(&NettingCircuit{})
	if err != nil {
		return fmt.Errorf("setup netting circuit: %w", err)
	}
	p.privacy = privacyKeys
	p.netting = nettingKeys
	return nil
}

func compileAndSetup(circuit frontend.Circuit) (*circuitKeys, error) {
	cs, err := frontend.Compile(curve.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return &circuitKeys{cs: cs, pk: pk, vk: vk}, nil
}

// LoadKeys loads compiled constraint systems and Groth16 keys for both
// circuits from a keys directory laid out as
// {cdr_privacy,settlement_calculation}.{cs,pk,vk}, matching the directory
// convention in spec §4.1/§6.
func (p *Prover) LoadKeys(keysDir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	privacyKeys, err := loadCircuitKeys(keysDir, "cdr_privacy")
	if err != nil {
		return fmt.Errorf("load cdr_privacy keys: %w", err)
	}
	nettingKeys, err := loadCircuitKeys(keysDir, "settlement_calculation")
	if err != nil {
		return fmt.Errorf("load settlement_calculation keys: %w", err)
	}
	p.privacy = privacyKeys
	p.netting = nettingKeys
	return nil
}

func loadCircuitKeys(dir, circuitID string) (*circuitKeys, error) {
	cs := groth16.NewCS(curve)
	if err := readFrom(dir+"/"+circuitID+".cs", cs); err != nil {
		return nil, err
	}
	pk := groth16.NewProvingKey(curve)
	if err := readFrom(dir+"/"+circuitID+".pk", pk); err != nil {
		return nil, err
	}
	vk := groth16.NewVerifyingKey(curve)
	if err := readFrom(dir+"/"+circuitID+".vk", vk); err != nil {
		return nil, err
	}
	return &circuitKeys{cs: cs, pk: pk, vk: vk}, nil
}

type readerFrom interface {
	ReadFrom(r *os.File) (int64, error)
}

func readFrom(path string, into readerFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := into.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

type writerTo interface {
	WriteTo(w *os.File) (int64, error)
}

// SaveKeys persists both circuits' constraint systems and keys to keysDir
// under the same naming convention LoadKeys expects.
func (p *Prover) SaveKeys(keysDir string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.privacy.ready() || !p.netting.ready() {
		return errors.New("zk: prover not initialized")
	}
	if err := saveCircuitKeys(keysDir, "cdr_privacy", p.privacy); err != nil {
		return err
	}
	return saveCircuitKeys(keysDir, "settlement_calculation", p.netting)
}

func saveCircuitKeys(dir, circuitID string, keys *circuitKeys) error {
	if err := writeTo(dir+"/"+circuitID+".cs", keys.cs); err != nil {
		return err
	}
	if err := writeTo(dir+"/"+circuitID+".pk", keys.pk); err != nil {
		return err
	}
	return writeTo(dir+"/"+circuitID+".vk", keys.vk)
}

func writeTo(path string, from writerTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := from.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// GenerateRecordProof proves circuit P for witness, returning the
// canonical-compressed Groth16 proof bytes. It checks the accounting
// identity before proving and returns InvalidOperation if it fails, per
// spec §4.1 ("failing fast beats failing inside the prover").
func (p *Prover) GenerateRecordProof(witness PrivacyWitness) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.privacy.ready() {
		return nil, errkind.New(errkind.ZkProof, "GenerateRecordProof", errors.New("privacy circuit not initialized"))
	}
	if !witness.CheckIdentity() {
		return nil, errkind.New(errkind.InvalidOperation, "GenerateRecordProof", errors.New("accounting identity does not hold"))
	}

	full, err := frontend.NewWitness(witness.assignment(), curve.ScalarField())
	if err != nil {
		return nil, errkind.New(errkind.ZkProof, "GenerateRecordProof", fmt.Errorf("build witness: %w", err))
	}
	proof, err := groth16.Prove(p.privacy.cs, p.privacy.pk, full)
	if err != nil {
		return nil, errkind.New(errkind.ZkProof, "GenerateRecordProof", fmt.Errorf("prove: %w", err))
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, errkind.New(errkind.Serialization, "GenerateRecordProof", fmt.Errorf("serialize proof: %w", err))
	}
	return buf.Bytes(), nil
}

// VerifyRecordProof verifies a circuit-P proof against the given public
// inputs (the batch/record's committed totals and period/network hashes).
func (p *Prover) VerifyRecordProof(proofBytes []byte, publicInputs PrivacyWitness) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.privacy.ready() {
		return false, errkind.New(errkind.ZkProof, "VerifyRecordProof", errors.New("privacy circuit not initialized"))
	}
	proof := groth16.NewProof(curve)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, errkind.New(errkind.InvalidProof, "VerifyRecordProof", err)
	}
	publicWitness, err := frontend.NewWitness(publicInputs.publicAssignment(), curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, errkind.New(errkind.ZkProof, "VerifyRecordProof", fmt.Errorf("build public witness: %w", err))
	}
	if err := groth16.Verify(proof, p.privacy.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

// GenerateSettlementProof proves circuit S for witness, the triangular
// netting symmetric counterpart of GenerateRecordProof.
func (p *Prover) GenerateSettlementProof(witness NettingWitness) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.netting.ready() {
		return nil, errkind.New(errkind.ZkProof, "GenerateSettlementProof", errors.New("netting circuit not initialized"))
	}
	if !witness.CheckConservation() {
		return nil, errkind.New(errkind.InvalidOperation, "GenerateSettlementProof", errors.New("net positions do not sum to zero"))
	}

	full, err := frontend.NewWitness(witness.assignment(), curve.ScalarField())
	if err != nil {
		return nil, errkind.New(errkind.ZkProof, "GenerateSettlementProof", fmt.Errorf("build witness: %w", err))
	}
	proof, err := groth16.Prove(p.netting.cs, p.netting.pk, full)
	if err != nil {
		return nil, errkind.New(errkind.ZkProof, "GenerateSettlementProof", fmt.Errorf("prove: %w", err))
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, errkind.New(errkind.Serialization, "GenerateSettlementProof", fmt.Errorf("serialize proof: %w", err))
	}
	return buf.Bytes(), nil
}

// VerifySettlementProof verifies a circuit-S proof against the given
// public inputs.
func (p *Prover) VerifySettlementProof(proofBytes []byte, publicInputs NettingWitness) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.netting.ready() {
		return false, errkind.New(errkind.ZkProof, "VerifySettlementProof", errors.New("netting circuit not initialized"))
	}
	proof := groth16.NewProof(curve)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, errkind.New(errkind.InvalidProof, "VerifySettlementProof", err)
	}
	publicWitness, err := frontend.NewWitness(publicInputs.publicAssignment(), curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, errkind.New(errkind.ZkProof, "VerifySettlementProof", fmt.Errorf("build public witness: %w", err))
	}
	if err := groth16.Verify(proof, p.netting.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}
