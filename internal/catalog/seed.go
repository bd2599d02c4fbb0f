package catalog

import (
	"context"

	"repairdesk/pkg/model"
)

// DefaultIssues is the starter catalog loaded by `migrate -seed`.
var DefaultIssues = []model.RepairIssue{
	{ID: "screen-crack", Name: "Cracked screen", BaseCost: 80, BaseDurationMinutes: 90, Difficulty: 2},
	{ID: "screen-replacement", Name: "Display replacement", BaseCost: 120, BaseDurationMinutes: 150, Difficulty: 3},
	{ID: "battery", Name: "Battery replacement", BaseCost: 80, BaseDurationMinutes: 60, Difficulty: 2},
	{ID: "water-damage", Name: "Water damage treatment", BaseCost: 150, BaseDurationMinutes: 240, Difficulty: 5},
	{ID: "audio", Name: "Speaker or microphone repair", BaseCost: 90, BaseDurationMinutes: 90, Difficulty: 3},
	{ID: "performance", Name: "Performance diagnostics and cleanup", BaseCost: 60, BaseDurationMinutes: 60, Difficulty: 1},
	{ID: "connectivity", Name: "Wi-Fi or Bluetooth repair", BaseCost: 70, BaseDurationMinutes: 90, Difficulty: 3},
	{ID: "charging-port", Name: "Charging port replacement", BaseCost: 65, BaseDurationMinutes: 60, Difficulty: 2},
	{ID: "keyboard", Name: "Keyboard replacement", BaseCost: 110, BaseDurationMinutes: 120, Difficulty: 3},
}

var DefaultDevices = []model.Device{
	{ID: "iphone-15-pro", Brand: "apple", Category: "smartphone", Model: "iPhone 15 Pro", ReleaseYear: 2023},
	{ID: "macbook-pro-16-2024", Brand: "apple", Category: "premium_laptop", Model: "MacBook Pro 16", ReleaseYear: 2024},
	{ID: "galaxy-s21", Brand: "samsung", Category: "smartphone", Model: "Galaxy S21", ReleaseYear: 2021},
	{ID: "pixel-4", Brand: "google", Category: "smartphone", Model: "Pixel 4", ReleaseYear: 2019},
	{ID: "thinkpad-x1-2022", Brand: "lenovo", Category: "laptop", Model: "ThinkPad X1 Carbon", ReleaseYear: 2022},
	{ID: "ipad-air-2020", Brand: "apple", Category: "tablet", Model: "iPad Air", ReleaseYear: 2020},
}

// Seed upserts the default catalog. Existing entries with the same id are
// overwritten.
func Seed(ctx context.Context, repo Repository) (int, error) {
	n := 0
	for i := range DefaultDevices {
		if err := repo.UpsertDevice(ctx, &DefaultDevices[i]); err != nil {
			return n, err
		}
		n++
	}
	for i := range DefaultIssues {
		if err := repo.UpsertIssue(ctx, &DefaultIssues[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
