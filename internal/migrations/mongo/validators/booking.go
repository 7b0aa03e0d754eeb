package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"sauna_id", "user_id", "start_time", "end_time", "status", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"sauna_id":   bson.M{"bsonType": "string"},
			"user_id":    bson.M{"bsonType": "string"},
			"start_time": bson.M{"bsonType": "date"},
			"end_time":   bson.M{"bsonType": "date"},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"active", "completed", "cancelled", "early_completion"},
			},
			"reminder_id": bson.M{"bsonType": "string"},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}
