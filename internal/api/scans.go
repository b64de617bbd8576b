package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListScansOptions filters and paginates ListScans. Zero values are
// omitted and the backend defaults apply.
type ListScansOptions struct {
	Page     int
	PageSize int
	Status   ScanStatus
}

// CreateScan submits a new scan for the given target. The returned scan
// starts in status pending; progress is observed via GetScan.
func (c *Client) CreateScan(ctx context.Context, req ScanRequest) (*Scan, error) {
	var scan Scan
	err := c.do(ctx, &call{
		method:        http.MethodPost,
		path:          "/scans",
		body:          req,
		out:           &scan,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// ListScans returns one page of the caller's scans, newest first.
func (c *Client) ListScans(ctx context.Context, opts ListScansOptions) (*ScanList, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}

	var list ScanList
	err := c.do(ctx, &call{
		method:        http.MethodGet,
		path:          "/scans",
		query:         query,
		out:           &list,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// GetScan fetches the current state of a single scan.
func (c *Client) GetScan(ctx context.Context, id int64) (*Scan, error) {
	var scan Scan
	err := c.do(ctx, &call{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/scans/%d", id),
		out:           &scan,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// CancelScan cancels a pending or running scan. The backend rejects
// cancellation of scans already in a terminal status.
func (c *Client) CancelScan(ctx context.Context, id int64) (*Scan, error) {
	var scan Scan
	err := c.do(ctx, &call{
		method:        http.MethodPost,
		path:          fmt.Sprintf("/scans/%d/cancel", id),
		out:           &scan,
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return &scan, nil
}

// DeleteScan removes a scan and its findings.
func (c *Client) DeleteScan(ctx context.Context, id int64) error {
	return c.do(ctx, &call{
		method:        http.MethodDelete,
		path:          fmt.Sprintf("/scans/%d", id),
		authenticated: true,
	})
}
