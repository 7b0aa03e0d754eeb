package validators

import "go.mongodb.org/mongo-driver/bson"

var timeRangeSchema = bson.M{
	"bsonType": "object",
	"required": []string{"start", "end"},
	"properties": bson.M{
		"start": bson.M{"bsonType": "string"},
		"end":   bson.M{"bsonType": "string"},
	},
}

var SaunaValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "admin_id", "slot_duration_minutes", "operating_hours", "max_concurrent_bookings", "max_total_bookings", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"admin_id":    bson.M{"bsonType": "string"},
			"name":        bson.M{"bsonType": "string"},
			"description": bson.M{"bsonType": "string"},
			"location":    bson.M{"bsonType": "string"},
			"slot_duration_minutes": bson.M{
				"bsonType": "int",
				"minimum":  30,
				"maximum":  180,
			},
			"operating_hours": bson.M{
				"bsonType": "object",
				"required": []string{"weekday", "weekend"},
				"properties": bson.M{
					"weekday": timeRangeSchema,
					"weekend": timeRangeSchema,
				},
			},
			"max_concurrent_bookings": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},
			"max_total_bookings": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
