package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// VulnerabilityFilter narrows ScanVulnerabilities. Zero values mean no
// filtering.
type VulnerabilityFilter struct {
	Severity Severity
	VulnType string
}

// ScanVulnerabilities returns the findings for a scan, ordered most severe
// first. Findings only exist once a scan reaches status completed; callers
// driving the polling flow gate this fetch on that status.
func (c *Client) ScanVulnerabilities(ctx context.Context, scanID int64, filter VulnerabilityFilter) (*VulnerabilityList, error) {
	query := url.Values{}
	if filter.Severity != "" {
		query.Set("severity", string(filter.Severity))
	}
	if filter.VulnType != "" {
		query.Set("vuln_type", filter.VulnType)
	}

	var list VulnerabilityList
	err := c.do(ctx, &call{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/vulnerabilities/scan/%d", scanID),
		query:         query,
		out:           &list,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}
