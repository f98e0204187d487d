package validators

import "go.mongodb.org/mongo-driver/bson"

var BillingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"year_month",
			"resident_key",
			"base_first_half",
			"base_second_half",
			"overage_total",
			"total",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"year_month": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{6}$`,
			},

			"resident_key": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 120,
			},

			"base_first_half": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"base_second_half": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"overage_total": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"total": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
