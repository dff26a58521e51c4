// Copyright 2025 SP Consortium
//
// Sentinel errors for repository operations — explicit errors instead of
// nil, nil returns on a missing row.
package database

import "errors"

var (
	// ErrBatchNotFound is returned when a CDR batch record is not found.
	ErrBatchNotFound = errors.New("database: batch not found")

	// ErrSettlementNotFound is returned when a settlement proposal record
	// is not found.
	ErrSettlementNotFound = errors.New("database: settlement proposal not found")

	// ErrNettingProposalNotFound is returned when a triangular netting
	// proposal record is not found.
	ErrNettingProposalNotFound = errors.New("database: netting proposal not found")
)
