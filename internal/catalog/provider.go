package catalog

import (
	"context"
	"errors"

	"repairdesk/pkg/config"
	"repairdesk/pkg/model"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrIssueNotFound  = errors.New("repair issue not found")
	ErrUnavailable    = errors.New("catalog unavailable")
)

// Provider is the read-only view of the repair catalog.
type Provider interface {
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	GetIssue(ctx context.Context, id string) (*model.RepairIssue, error)
	// GetIssues resolves ids in request order. Unknown ids are left out of the
	// result rather than reported as errors.
	GetIssues(ctx context.Context, ids []string) ([]model.RepairIssue, error)
}

// New picks the provider configured by CATALOG_SOURCE.
func New(cfg *config.Config) Provider {
	if cfg.CatalogSource == config.CatalogSourceHTTP {
		return NewHTTPProvider(cfg.CatalogURL, cfg.CatalogTimeout)
	}
	return NewMongoRepository(cfg)
}

func orderByIDs(ids []string, found map[string]model.RepairIssue) []model.RepairIssue {
	out := make([]model.RepairIssue, 0, len(found))
	for _, id := range ids {
		if issue, ok := found[id]; ok {
			out = append(out, issue)
		}
	}
	return out
}
