package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/securescan/securescan-cli/internal/api"
)

const (
	doubleLine = "═" // ═
	singleLine = "─" // ─
	lineWidth  = 50
)

// TextReporter outputs plain terminal text.
type TextReporter struct{}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// Generate writes a formatted scan result to w.
func (r *TextReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scan := result.Scan
	b := &strings.Builder{}

	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "SecureScan Report - Scan #%d\n", scan.ID)
	fmt.Fprintln(b, doubleBar)

	fmt.Fprintf(b, "Target:   %s\n", scan.TargetURL)
	fmt.Fprintf(b, "Type:     %s (depth %d)\n", scan.ScanType, scan.ScanDepth)
	fmt.Fprintf(b, "Status:   %s (%d%%)\n", scan.Status, scan.Progress)
	if scan.ErrorMessage != "" {
		fmt.Fprintf(b, "Error:    %s\n", scan.ErrorMessage)
	}
	if scan.StartedAt != nil && scan.CompletedAt != nil {
		duration := scan.CompletedAt.Sub(scan.StartedAt.Time)
		fmt.Fprintf(b, "Duration: %.1fs\n", duration.Seconds())
	}
	fmt.Fprintf(b, "Created:  %s\n", scan.CreatedAt.Format(time.RFC3339))

	fmt.Fprintln(b, singleBar)
	fmt.Fprintf(b, "Findings: %d total\n", scan.TotalVulnerabilities)
	fmt.Fprintf(b, "  critical: %-4d high: %-4d medium: %-4d low: %-4d info: %d\n",
		scan.CriticalCount, scan.HighCount, scan.MediumCount, scan.LowCount, scan.InfoCount)

	if len(result.Vulnerabilities) == 0 {
		fmt.Fprintln(b, singleBar)
		if scan.Status == api.ScanCompleted {
			fmt.Fprintln(b, "No vulnerabilities found.")
		} else {
			fmt.Fprintln(b, "No findings available (scan did not complete).")
		}
	} else {
		for _, vuln := range result.Vulnerabilities {
			fmt.Fprintln(b, singleBar)
			fmt.Fprintf(b, "[%s] %s\n", strings.ToUpper(string(vuln.Severity)), vuln.Name)
			fmt.Fprintf(b, "  Type:           %s\n", vuln.VulnType)
			fmt.Fprintf(b, "  URL:            %s\n", vuln.URL)
			if vuln.Parameter != "" {
				fmt.Fprintf(b, "  Parameter:      %s (%s)\n", vuln.Parameter, vuln.Method)
			}
			fmt.Fprintf(b, "  Description:    %s\n", vuln.Description)
			if vuln.Evidence != "" {
				fmt.Fprintf(b, "  Evidence:       %s\n", vuln.Evidence)
			}
			if vuln.Recommendation != "" {
				fmt.Fprintf(b, "  Recommendation: %s\n", vuln.Recommendation)
			}
			if vuln.CWEID != "" {
				fmt.Fprintf(b, "  CWE:            %s\n", vuln.CWEID)
			}
		}
	}

	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}
