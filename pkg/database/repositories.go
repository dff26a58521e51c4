// Copyright 2025 SP Consortium
//
// Repositories aggregates every reporting repository behind a single
// handle, the way cmd/cdrnode wires up storage at startup.
package database

// Repositories bundles the reporting repositories backed by a single
// database Client.
type Repositories struct {
	Batches     *BatchRepository
	Settlements *SettlementRepository
}

// NewRepositories constructs every repository against client.
func NewRepositories(client *Client) *Repositories {
	return &Repositories{
		Batches:     NewBatchRepository(client),
		Settlements: NewSettlementRepository(client),
	}
}
