package validators

import "go.mongodb.org/mongo-driver/bson"

var ResidentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"year_month",
			"resident_key",
			"wing",
			"floor",
			"side",
			"name",
			"created_at",
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

			"wing": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 10,
			},

			"floor": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 10,
			},

			"side": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 10,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 50,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
