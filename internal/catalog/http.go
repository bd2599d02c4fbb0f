package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repairdesk/pkg/client"
	"repairdesk/pkg/model"
)

// HTTPProvider reads the catalog from an external catalog service that
// answers with the {"data": ...} envelope.
type HTTPProvider struct {
	http *client.HttpClient
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{http: client.NewHttpClient(strings.TrimRight(baseURL, "/"), timeout)}
}

// WaitForHealthy blocks until the catalog service reports healthy.
func (p *HTTPProvider) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	if err := p.http.WaitForHealthy(ctx, maxWait); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (p *HTTPProvider) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	var device model.Device
	if err := p.get(ctx, "/api/v1/devices/"+url.PathEscape(id), ErrDeviceNotFound, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (p *HTTPProvider) GetIssue(ctx context.Context, id string) (*model.RepairIssue, error) {
	var issue model.RepairIssue
	if err := p.get(ctx, "/api/v1/repair-issues/"+url.PathEscape(id), ErrIssueNotFound, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (p *HTTPProvider) GetIssues(ctx context.Context, ids []string) ([]model.RepairIssue, error) {
	if len(ids) == 0 {
		return []model.RepairIssue{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var issues []model.RepairIssue
	if err := p.get(ctx, "/api/v1/repair-issues?"+q.Encode(), nil, &issues); err != nil {
		return nil, err
	}

	found := make(map[string]model.RepairIssue, len(issues))
	for _, issue := range issues {
		found[issue.ID] = issue
	}
	return orderByIDs(ids, found), nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, notFound error, target any) error {
	resp, err := p.http.GET(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case !resp.IsSuccess():
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, client.GetErrorMessage(resp))
	}

	if err := resp.DecodeData(target); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
