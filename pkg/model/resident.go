package model

import "time"

// Resident is a building resident registered for a given billing
// month. Residents re-register monthly; the same person in two months
// is two documents.
type Resident struct {
	ID          string    `json:"id" bson:"_id"`
	YearMonth   string    `json:"year_month" bson:"year_month"`
	ResidentKey string    `json:"resident_key" bson:"resident_key"`
	Wing        string    `json:"wing" bson:"wing"`
	Floor       string    `json:"floor" bson:"floor"`
	Side        string    `json:"side" bson:"side"`
	Name        string    `json:"name" bson:"name"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// ResidentRegistration is the payload of POST /api/v1/residents/:yearMonth.
type ResidentRegistration struct {
	Wing  string `json:"wing" validate:"required,min=1,max=10"`
	Floor string `json:"floor" validate:"required,min=1,max=10"`
	Side  string `json:"side" validate:"required,min=1,max=10"`
	Name  string `json:"name" validate:"required,min=1,max=50"`
}

// BuildResidentKey derives the stable key used across rentals, daily
// usage and billing documents.
func BuildResidentKey(wing, floor, side, name string) string {
	return wing + "-" + floor + "-" + side + "-" + name
}

// ResidentID builds the document key for a (yearMonth, resident) pair.
func ResidentID(yearMonth, residentKey string) string {
	return yearMonth + ":" + residentKey
}
