package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/api"
	"github.com/securescan/securescan-cli/internal/report"
)

var vulnsCmd = &cobra.Command{
	Use:   "vulns <scan-id>",
	Short: "Show the vulnerabilities found by a completed scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runVulns,
}

func init() {
	rootCmd.AddCommand(vulnsCmd)

	vulnsCmd.Flags().String("severity", "", "Filter by severity (critical, high, medium, low, info)")
	vulnsCmd.Flags().String("vuln-type", "", "Filter by vulnerability type (e.g. sql_injection, xss)")
}

func runVulns(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}
	severity, _ := cmd.Flags().GetString("severity")
	vulnType, _ := cmd.Flags().GetString("vuln-type")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	// Findings only exist for completed scans. Check the status first so
	// failed or in-flight scans get a useful message instead of an empty list.
	scan, err := a.client.GetScan(ctx, id)
	if err != nil {
		return printAPIError(err)
	}
	if scan.Status != api.ScanCompleted {
		return fmt.Errorf("scan %d is %s; vulnerabilities are only available for completed scans", id, scan.Status)
	}

	vulns, err := a.client.ScanVulnerabilities(ctx, id, api.VulnerabilityFilter{
		Severity: api.Severity(severity),
		VulnType: vulnType,
	})
	if err != nil {
		return printAPIError(err)
	}

	return render(cmd, &report.Result{
		Scan:            scan,
		Vulnerabilities: vulns.Vulnerabilities,
	})
}
