// Copyright 2025 SP Consortium
//
// Settlement repository — persists bilateral settlement proposals and
// triangular netting proposals for operator-facing reporting.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SettlementRepository handles settlement and netting proposal reporting
// records.
type SettlementRepository struct {
	client *Client
}

// NewSettlementRepository constructs a repository backed by client.
func NewSettlementRepository(client *Client) *SettlementRepository {
	return &SettlementRepository{client: client}
}

// CreateProposal inserts a reporting row for a newly-proposed bilateral
// settlement.
func (r *SettlementRepository) CreateProposal(ctx context.Context, rec *SettlementRecord) error {
	query := `
		INSERT INTO settlement_proposals (
			proposal_id, creditor_operator, debtor_operator, amount_cents,
			currency, status, proposed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (proposal_id) DO NOTHING`

	_, err := r.client.ExecContext(ctx, query,
		rec.ProposalID, rec.Creditor, rec.Debtor, rec.AmountCents,
		rec.Currency, rec.Status, rec.ProposedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create settlement proposal: %w", err)
	}
	return nil
}

// GetProposal retrieves a settlement proposal's reporting row by its
// hex-encoded proposal ID.
func (r *SettlementRepository) GetProposal(ctx context.Context, proposalID string) (*SettlementRecord, error) {
	query := `
		SELECT proposal_id, creditor_operator, debtor_operator, amount_cents,
			currency, status, counter_amount_cents, reject_reason,
			proposed_at, expires_at, finalized_at
		FROM settlement_proposals
		WHERE proposal_id = $1`

	rec := &SettlementRecord{}
	err := r.client.QueryRowContext(ctx, query, proposalID).Scan(
		&rec.ProposalID, &rec.Creditor, &rec.Debtor, &rec.AmountCents,
		&rec.Currency, &rec.Status, &rec.CounterAmountCents, &rec.RejectReason,
		&rec.ProposedAt, &rec.ExpiresAt, &rec.FinalizedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSettlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement proposal: %w", err)
	}
	return rec, nil
}

// UpdateStatus transitions a settlement proposal to status, recording an
// optional counter-amount (Accept/Counter) or reject reason (Reject).
func (r *SettlementRepository) UpdateStatus(ctx context.Context, proposalID, status string, counterAmountCents *int64, rejectReason string) error {
	query := `
		UPDATE settlement_proposals
		SET status = $2, counter_amount_cents = $3, reject_reason = NULLIF($4, ''),
			finalized_at = CASE WHEN $2 IN ('accepted', 'rejected', 'executed', 'expired') THEN now() ELSE finalized_at END
		WHERE proposal_id = $1`

	result, err := r.client.ExecContext(ctx, query, proposalID, status, counterAmountCents, rejectReason)
	if err != nil {
		return fmt.Errorf("update settlement status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrSettlementNotFound
	}
	return nil
}

// ListOpen returns every settlement proposal still awaiting resolution.
func (r *SettlementRepository) ListOpen(ctx context.Context) ([]*SettlementRecord, error) {
	query := `
		SELECT proposal_id, creditor_operator, debtor_operator, amount_cents,
			currency, status, counter_amount_cents, reject_reason,
			proposed_at, expires_at, finalized_at
		FROM settlement_proposals
		WHERE status IN ('proposed', 'countered')
		ORDER BY proposed_at ASC`

	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open settlement proposals: %w", err)
	}
	defer rows.Close()

	var out []*SettlementRecord
	for rows.Next() {
		rec := &SettlementRecord{}
		if err := rows.Scan(
			&rec.ProposalID, &rec.Creditor, &rec.Debtor, &rec.AmountCents,
			&rec.Currency, &rec.Status, &rec.CounterAmountCents, &rec.RejectReason,
			&rec.ProposedAt, &rec.ExpiresAt, &rec.FinalizedAt,
		); err != nil {
			return nil, fmt.Errorf("scan settlement proposal: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateNettingProposal inserts a reporting row for a newly-opened
// triangular netting proposal.
func (r *SettlementRepository) CreateNettingProposal(ctx context.Context, rec *NettingRecord) error {
	query := `
		INSERT INTO netting_proposals (
			proposal_id, participant_a, participant_b, participant_c,
			gross_cents, net_cents, savings_percent, status, proposed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (proposal_id) DO NOTHING`

	_, err := r.client.ExecContext(ctx, query,
		rec.ProposalID, rec.ParticipantA, rec.ParticipantB, rec.ParticipantC,
		rec.GrossCents, rec.NetCents, rec.SavingsPercent, rec.Status,
		rec.ProposedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create netting proposal: %w", err)
	}
	return nil
}

// GetNettingProposal retrieves a netting proposal's reporting row.
func (r *SettlementRepository) GetNettingProposal(ctx context.Context, proposalID string) (*NettingRecord, error) {
	query := `
		SELECT proposal_id, participant_a, participant_b, participant_c,
			gross_cents, net_cents, savings_percent, status, proposed_at, expires_at
		FROM netting_proposals
		WHERE proposal_id = $1`

	rec := &NettingRecord{}
	err := r.client.QueryRowContext(ctx, query, proposalID).Scan(
		&rec.ProposalID, &rec.ParticipantA, &rec.ParticipantB, &rec.ParticipantC,
		&rec.GrossCents, &rec.NetCents, &rec.SavingsPercent, &rec.Status,
		&rec.ProposedAt, &rec.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNettingProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get netting proposal: %w", err)
	}
	return rec, nil
}

// UpdateNettingStatus transitions a netting proposal to status.
func (r *SettlementRepository) UpdateNettingStatus(ctx context.Context, proposalID, status string) error {
	query := `UPDATE netting_proposals SET status = $2 WHERE proposal_id = $1`
	result, err := r.client.ExecContext(ctx, query, proposalID, status)
	if err != nil {
		return fmt.Errorf("update netting status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNettingProposalNotFound
	}
	return nil
}
