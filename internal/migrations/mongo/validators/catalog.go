package validators

import "go.mongodb.org/mongo-driver/bson"

var DeviceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"brand", "category", "release_year"},
		"properties": bson.M{
			"brand": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 50,
			},
			"category": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 50,
			},
			"release_year": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1970,
				"maximum":  2100,
			},
		},
	},
}

var RepairIssueValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "base_cost", "base_duration_minutes", "difficulty"},
		"properties": bson.M{
			"base_cost": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},
			"base_duration_minutes": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"difficulty": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  5,
			},
		},
	},
}
