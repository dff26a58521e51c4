package primitives

import (
	"fmt"
	"time"
)

// RecordType identifies the kind of billing event a BCE record captures.
type RecordType string

const (
	VoiceCDR RecordType = "voice_cdr"
	DataCDR  RecordType = "data_cdr"
	SMSCDR   RecordType = "sms_cdr"
	Roaming  RecordType = "roaming"
)

// BCERecord is a single call/data/SMS billing event.
type BCERecord struct {
	RecordID             string     `json:"record_id"`
	RecordType           RecordType `json:"record_type"`
	SubscriberIMSI       string     `json:"subscriber_imsi"`
	HomePLMN             string     `json:"home_plmn"`
	VisitedPLMN          string     `json:"visited_plmn"`
	SessionDurationSecs  uint64     `json:"session_duration_seconds"`
	BytesUp              uint64     `json:"bytes_up"`
	BytesDown            uint64     `json:"bytes_down"`
	WholesaleChargeCents uint64     `json:"wholesale_charge_cents"`
	RetailChargeCents    uint64     `json:"retail_charge_cents"`
	Currency             string     `json:"currency"`
	Timestamp            time.Time  `json:"timestamp"`
	ChargingID           string     `json:"charging_id"`
}

// CurrencyOrDefault returns r.Currency, defaulting per policy when unset.
func (r BCERecord) CurrencyOrDefault() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// BCEBatch is an immutable-once-announced collection of BCE records for a
// (home, visited) operator pair and billing period.
type BCEBatch struct {
	BatchID           Hash      `json:"batch_id"`
	Home              OpId      `json:"home"`
	Visited           OpId      `json:"visited"`
	Records           []BCERecord `json:"records"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	TotalChargesCents uint64    `json:"total_charges_cents"`
}

// NewBCEBatch builds a batch from records, computing TotalChargesCents and
// a content-hash BatchID so the accounting invariant holds by construction.
func NewBCEBatch(home, visited OpId, records []BCERecord, periodStart, periodEnd time.Time) (*BCEBatch, error) {
	b := &BCEBatch{
		Home:        home,
		Visited:     visited,
		Records:     records,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	for _, r := range records {
		b.TotalChargesCents += r.WholesaleChargeCents
	}
	id, err := HashJSON(struct {
		Home        OpId
		Visited     OpId
		PeriodStart time.Time
		PeriodEnd   time.Time
		Total       uint64
		Count       int
	}{home, visited, periodStart, periodEnd, b.TotalChargesCents, len(records)})
	if err != nil {
		return nil, fmt.Errorf("hash batch: %w", err)
	}
	b.BatchID = id
	return b, nil
}

// CheckInvariant verifies total_charges_cents = Σ wholesale_charge_cents.
func (b *BCEBatch) CheckInvariant() error {
	var sum uint64
	for _, r := range b.Records {
		sum += r.WholesaleChargeCents
	}
	if sum != b.TotalChargesCents {
		return fmt.Errorf("primitives: batch %s total_charges_cents=%d does not match record sum=%d", b.BatchID, b.TotalChargesCents, sum)
	}
	return nil
}

// Pair returns the unordered {home, visited} pair key used to group
// batches for settlement aggregation (§4.4 process_pending_batches).
func (b *BCEBatch) Pair() OperatorPair {
	return UnorderedPair(b.Home, b.Visited)
}

// OperatorPair is an unordered pair of operators, used as a map key when
// grouping batches by the two operators involved regardless of direction.
type OperatorPair struct {
	A, B OpId
}

// UnorderedPair returns a pair keyed so that (x, y) and (y, x) compare
// equal, ordering by string representation for determinism.
func UnorderedPair(x, y OpId) OperatorPair {
	if x.String() <= y.String() {
		return OperatorPair{A: x, B: y}
	}
	return OperatorPair{A: y, B: x}
}
