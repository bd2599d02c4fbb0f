package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingStatuses = []string{
	"draft",
	"pending",
	"confirmed",
	"in_progress",
	"ready_for_pickup",
	"completed",
	"cancelled",
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_number",
			"customer_id",
			"device_id",
			"selected_issue_ids",
			"service_tier",
			"customer_class",
			"urgency_level",
			"status",
			"quote",
			"completion_percentage",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"booking_number": bson.M{
				"bsonType": "string",
				"pattern":  `^RB-[0-9]{6}-[0-9A-F]{8}$`,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"selected_issue_ids": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 20,
				"items":    bson.M{"bsonType": "string"},
			},

			"service_tier": bson.M{
				"bsonType": "string",
				"enum":     []string{"standard", "express", "same_day"},
			},

			"customer_class": bson.M{
				"bsonType": "string",
				"enum":     []string{"individual", "business", "education"},
			},

			"urgency_level": bson.M{
				"bsonType": "string",
				"enum":     []string{"low", "normal", "high", "urgent"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},

			"quote": bson.M{
				"bsonType": "object",
				"required": []string{"base_cost", "final_cost", "currency", "valid_until"},
				"properties": bson.M{
					"final_cost": bson.M{
						"bsonType": "number",
						"minimum":  0,
					},
					"valid_until": bson.M{
						"bsonType": "date",
					},
				},
			},

			"completion_percentage": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  100,
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingTransitionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"booking_id", "sequence", "from_state", "to_state", "actor_id", "occurred_at"},
		"properties": bson.M{
			"sequence": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"from_state": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},
			"to_state": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},
			"actor_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"occurred_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var OutboxValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"topic", "key", "event_type", "event", "status", "attempts", "created_at"},
		"properties": bson.M{
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "published", "failed"},
			},
			"attempts": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
