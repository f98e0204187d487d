package model

import "time"

// BillingRecord is the monthly per-resident ledger entry: the two
// half-month base fees plus accumulated overage charges. Total is
// derived, never set independently.
type BillingRecord struct {
	ID             string    `json:"id" bson:"_id"`
	YearMonth      string    `json:"year_month" bson:"year_month"` // "202401"
	ResidentKey    string    `json:"resident_key" bson:"resident_key"`
	BaseFirstHalf  int       `json:"base_first_half" bson:"base_first_half"`
	BaseSecondHalf int       `json:"base_second_half" bson:"base_second_half"`
	OverageTotal   int       `json:"overage_total" bson:"overage_total"`
	Total          int       `json:"total" bson:"total"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// BillingRecordID builds the document key for a (yearMonth, resident) pair.
func BillingRecordID(yearMonth, residentKey string) string {
	return yearMonth + ":" + residentKey
}

// RecomputeTotal restores the ledger invariant after any field change.
func (b *BillingRecord) RecomputeTotal() {
	b.Total = b.BaseFirstHalf + b.BaseSecondHalf + b.OverageTotal
}
