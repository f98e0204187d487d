package model

// Bike is a master-data record for one bike in the shared fleet.
type Bike struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}
