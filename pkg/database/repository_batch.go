// Copyright 2025 SP Consortium
//
// Batch repository — persists CDR batches that cleared the coordinator's
// privacy firewall (pkg/pipeline.acceptBatchAnnouncement), for reporting.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sp-cdr/consortium-chain/pkg/primitives"
)

// BatchRepository handles CDR batch reporting records.
type BatchRepository struct {
	client *Client
}

// NewBatchRepository constructs a repository backed by client.
func NewBatchRepository(client *Client) *BatchRepository {
	return &BatchRepository{client: client}
}

// RecordBatch inserts a reporting row for a batch accepted by the pipeline.
func (r *BatchRepository) RecordBatch(ctx context.Context, batch *primitives.BCEBatch) error {
	query := `
		INSERT INTO cdr_batches (
			batch_id, home_operator, visited_operator, record_count,
			total_charges_cents, period_start, period_end, settled, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, false, now())
		ON CONFLICT (batch_id) DO NOTHING`

	_, err := r.client.ExecContext(ctx, query,
		batch.BatchID.Bytes(), batch.Home.String(), batch.Visited.String(),
		len(batch.Records), batch.TotalChargesCents, batch.PeriodStart, batch.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch's reporting row by content hash.
func (r *BatchRepository) GetBatch(ctx context.Context, batchID primitives.Hash) (*BatchRecord, error) {
	query := `
		SELECT batch_id, home_operator, visited_operator, record_count,
			total_charges_cents, period_start, period_end, settled, settlement_id, created_at
		FROM cdr_batches
		WHERE batch_id = $1`

	rec := &BatchRecord{}
	err := r.client.QueryRowContext(ctx, query, batchID.Bytes()).Scan(
		&rec.BatchID, &rec.Home, &rec.Visited, &rec.RecordCount,
		&rec.TotalChargesCents, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.Settled, &rec.SettlementID, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return rec, nil
}

// ListUnsettled returns every recorded batch not yet attached to a
// finalized settlement, ordered oldest-first.
func (r *BatchRepository) ListUnsettled(ctx context.Context) ([]*BatchRecord, error) {
	query := `
		SELECT batch_id, home_operator, visited_operator, record_count,
			total_charges_cents, period_start, period_end, settled, settlement_id, created_at
		FROM cdr_batches
		WHERE settled = false
		ORDER BY created_at ASC`

	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unsettled batches: %w", err)
	}
	defer rows.Close()

	var out []*BatchRecord
	for rows.Next() {
		rec := &BatchRecord{}
		if err := rows.Scan(
			&rec.BatchID, &rec.Home, &rec.Visited, &rec.RecordCount,
			&rec.TotalChargesCents, &rec.PeriodStart, &rec.PeriodEnd,
			&rec.Settled, &rec.SettlementID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkSettled attaches batchID to the settlement that cleared it.
func (r *BatchRepository) MarkSettled(ctx context.Context, batchID primitives.Hash, settlementID string) error {
	query := `UPDATE cdr_batches SET settled = true, settlement_id = $2 WHERE batch_id = $1`
	result, err := r.client.ExecContext(ctx, query, batchID.Bytes(), settlementID)
	if err != nil {
		return fmt.Errorf("mark batch settled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBatchNotFound
	}
	return nil
}
