package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ReportFormat selects the rendered report type served by the backend.
type ReportFormat string

const (
	ReportPDF  ReportFormat = "pdf"
	ReportHTML ReportFormat = "html"
)

// DownloadReport streams the rendered report for a scan into w. The report
// bytes are produced server-side; the client only stores them.
func (c *Client) DownloadReport(ctx context.Context, scanID int64, format ReportFormat, w io.Writer) error {
	switch format {
	case ReportPDF, ReportHTML:
	default:
		return fmt.Errorf("api: unsupported report format: %q", format)
	}

	return c.do(ctx, &call{
		method:        http.MethodGet,
		path:          fmt.Sprintf("/reports/%d/%s", scanID, format),
		sink:          w,
		authenticated: true,
	})
}
