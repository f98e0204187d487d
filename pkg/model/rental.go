package model

import "time"

// Rental actions accepted by the rentals endpoint.
const (
	ActionStart = "start"
	ActionEnd   = "end"
)

// Rental is one checkout of a bike by a resident. EndAt is nil while
// the bike is out; at most one open rental may exist per bike, which
// is enforced by a partial unique index on the collection. Rentals
// are never deleted.
type Rental struct {
	ID          string     `json:"id" bson:"_id"`
	BikeID      string     `json:"bike_id" bson:"bike_id" validate:"required,min=1,max=50"`
	ResidentKey string     `json:"resident_key" bson:"resident_key" validate:"required,min=3,max=120"`
	StartAt     time.Time  `json:"start_at" bson:"start_at" validate:"required"`
	EndAt       *time.Time `json:"end_at" bson:"end_at"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// Open reports whether the bike is still out on this rental.
func (r *Rental) Open() bool {
	return r.EndAt == nil
}

// RentalRequest is the payload of POST /api/v1/rentals. The resident
// key is required when starting; a return is keyed by bike alone.
type RentalRequest struct {
	Action      string `json:"action" validate:"required,oneof=start end"`
	BikeID      string `json:"bike_id" validate:"required,min=1,max=50"`
	ResidentKey string `json:"resident_key" validate:"required_if=Action start,omitempty,min=3,max=120"`
}
