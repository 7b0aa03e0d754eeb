package validators

import "go.mongodb.org/mongo-driver/bson"

var InviteValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"sauna_id", "email", "inviter_id", "status", "expires_at", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"sauna_id":   bson.M{"bsonType": "string"},
			"email":      bson.M{"bsonType": "string"},
			"inviter_id": bson.M{"bsonType": "string"},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "accepted", "expired"},
			},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
