package model

import "time"

// DailyUsage tracks one resident's cumulative riding time on one
// local calendar date. TotalDurationMinutes only ever grows, and
// OverageCharged flips to true at most once, in the same store
// transaction that crossed the daily threshold.
type DailyUsage struct {
	ID                   string    `json:"id" bson:"_id"`
	ResidentKey          string    `json:"resident_key" bson:"resident_key"`
	Date                 string    `json:"date" bson:"date"` // local date, "2006-01-02"
	TotalDurationMinutes int       `json:"total_duration_minutes" bson:"total_duration_minutes"`
	OverageCharged       bool      `json:"overage_charged" bson:"overage_charged"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// DailyUsageID builds the document key for a (resident, local date) pair.
func DailyUsageID(residentKey, date string) string {
	return residentKey + ":" + date
}
