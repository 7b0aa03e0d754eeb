package validators

import "go.mongodb.org/mongo-driver/bson"

var WaitlistEntryValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"sauna_id", "user_id", "slot_time", "booking_id", "notified", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"sauna_id":   bson.M{"bsonType": "string"},
			"user_id":    bson.M{"bsonType": "string"},
			"slot_time":  bson.M{"bsonType": "date"},
			"booking_id": bson.M{"bsonType": "string"},
			"notified":   bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
