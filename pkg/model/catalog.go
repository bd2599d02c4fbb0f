package model

type Device struct {
	ID          string `json:"id" bson:"_id" validate:"required"`
	Brand       string `json:"brand" bson:"brand" validate:"required,min=1,max=50"`
	Category    string `json:"category" bson:"category" validate:"required,min=1,max=50"`
	Model       string `json:"model,omitempty" bson:"model,omitempty" validate:"omitempty,max=100"`
	ReleaseYear int    `json:"release_year" bson:"release_year" validate:"required,min=1970,max=2100"`
}

// DeviceAttributes is the part of a device the price depends on. It is
// snapshotted into each booking so later catalog edits never reprice it.
type DeviceAttributes struct {
	Brand       string `json:"brand" bson:"brand"`
	Category    string `json:"category" bson:"category"`
	ReleaseYear int    `json:"release_year" bson:"release_year"`
}

func (d *Device) Attributes() DeviceAttributes {
	return DeviceAttributes{
		Brand:       d.Brand,
		Category:    d.Category,
		ReleaseYear: d.ReleaseYear,
	}
}

type RepairIssue struct {
	ID                  string  `json:"id" bson:"_id" validate:"required"`
	Name                string  `json:"name" bson:"name" validate:"required,min=2,max=100"`
	BaseCost            float64 `json:"base_cost" bson:"base_cost" validate:"gte=0"`
	BaseDurationMinutes int     `json:"base_duration_minutes" bson:"base_duration_minutes" validate:"gte=0"`
	Difficulty          int     `json:"difficulty" bson:"difficulty" validate:"min=1,max=5"`
}
