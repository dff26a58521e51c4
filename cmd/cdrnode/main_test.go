package main

import (
	"strings"
	"testing"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
)

func TestRunStartRejectsUnknownNetwork(t *testing.T) {
	err := runStart([]string{"--network", "globalstar", "--data-dir", t.TempDir(), "--port", "9000"})
	if err == nil || !strings.Contains(err.Error(), "unknown network") {
		t.Fatalf("runStart = %v, want unknown network error", err)
	}
}

func TestRunStartRejectsMissingDataDir(t *testing.T) {
	err := runStart([]string{"--network", "devnet", "--port", "9000"})
	if err == nil || !strings.Contains(err.Error(), "--data-dir is required") {
		t.Fatalf("runStart = %v, want missing data-dir error", err)
	}
}

func TestRunStartRejectsInvalidPort(t *testing.T) {
	err := runStart([]string{"--network", "devnet", "--data-dir", t.TempDir(), "--port", "0"})
	if err == nil || !strings.Contains(err.Error(), "--port must be between") {
		t.Fatalf("runStart = %v, want invalid port error", err)
	}
}

func TestRunGenerateKeysRequiresOutput(t *testing.T) {
	err := runGenerateKeys(nil)
	if err == nil || !strings.Contains(err.Error(), "--output is required") {
		t.Fatalf("runGenerateKeys = %v, want missing output error", err)
	}
}

func TestRunValidateCDRRequiresFile(t *testing.T) {
	err := runValidateCDR(nil)
	if err == nil || !strings.Contains(err.Error(), "--file is required") {
		t.Fatalf("runValidateCDR = %v, want missing file error", err)
	}
}

func TestRunValidateCDRRejectsMissingPath(t *testing.T) {
	err := runValidateCDR([]string{"--file", "/nonexistent/batch.json"})
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestCDRProofGateRejectsMissingProof(t *testing.T) {
	gate := cdrProofGate{}
	tx := chainstore.Transaction{
		DataKind:  chainstore.DataCDRRecord,
		CDRRecord: &chainstore.CDRTxData{HomeNetwork: "T-Mobile:DE", VisitedNetwork: "Orange:FR"},
	}
	if err := gate.VerifyCDRProof(tx); err == nil {
		t.Fatal("expected error for CDR transaction with no proof bytes")
	}
}

func TestCDRProofGateAcceptsProofPresent(t *testing.T) {
	gate := cdrProofGate{}
	tx := chainstore.Transaction{
		DataKind:  chainstore.DataCDRRecord,
		CDRRecord: &chainstore.CDRTxData{ZKProof: []byte("proof-bytes")},
	}
	if err := gate.VerifyCDRProof(tx); err != nil {
		t.Fatalf("VerifyCDRProof = %v, want nil", err)
	}
}

func TestCDRProofGateIgnoresBasicTransactions(t *testing.T) {
	gate := cdrProofGate{}
	tx := chainstore.Transaction{DataKind: chainstore.DataBasic}
	if err := gate.VerifyCDRProof(tx); err != nil {
		t.Fatalf("VerifyCDRProof = %v, want nil for a basic transfer", err)
	}
}
