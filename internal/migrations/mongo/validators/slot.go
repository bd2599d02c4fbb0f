package validators

import "go.mongodb.org/mongo-driver/bson"

// Capacity is enforced by the conditional increment in the slot repository;
// the schema only keeps the counter from going negative.
var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"date", "start_time", "end_time", "max_bookings", "current_bookings", "slot_type", "price_modifier"},
		"properties": bson.M{
			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},
			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},
			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},
			"max_bookings": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"current_bookings": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"slot_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"regular", "express", "same_day"},
			},
			"price_modifier": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},
		},
	},
}

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"slot_id", "released", "created_at"},
		"properties": bson.M{
			"slot_id": bson.M{
				"bsonType": "string",
			},
			"released": bson.M{
				"bsonType": "bool",
			},
		},
	},
}

var SpecialDateValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "is_closed", "capacity_percentage", "price_modifier"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},
			"capacity_percentage": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  100,
			},
			"price_modifier": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},
		},
	},
}
