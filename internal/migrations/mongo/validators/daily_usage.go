package validators

import "go.mongodb.org/mongo-driver/bson"

var DailyUsageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resident_key",
			"date",
			"total_duration_minutes",
			"overage_charged",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"resident_key": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 120,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"total_duration_minutes": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"overage_charged": bson.M{
				"bsonType": "bool",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
