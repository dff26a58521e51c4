// Copyright 2025 SP Consortium
package chainstore

import dbm "github.com/cometbft/cometbft-db"

// KV is the narrow storage capability Store needs: get/set plus a batch for
// atomic multi-key writes. cometbft-db's dbm.DB satisfies this directly, so
// production code wires a GoLevelDB-backed dbm.DB and tests wire
// dbm.NewMemDB(), matching the two-backends note in spec §9 ("dynamic
// dispatch over the chain store").
type KV interface {
	Get(key []byte) ([]byte, error)
	NewBatch() dbm.Batch
}

// dbmKV adapts a dbm.DB to KV. Kept as a thin named type (rather than using
// dbm.DB directly) so Store's field type doesn't leak the cometbft-db
// import into callers that only need to construct a Store.
type dbmKV struct {
	db dbm.DB
}

// NewDBKV wraps db for use by Store.
func NewDBKV(db dbm.DB) KV { return dbmKV{db: db} }

func (k dbmKV) Get(key []byte) ([]byte, error) { return k.db.Get(key) }
func (k dbmKV) NewBatch() dbm.Batch            { return k.db.NewBatch() }
