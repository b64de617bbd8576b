package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/api"
	"github.com/securescan/securescan-cli/internal/report"
	"github.com/securescan/securescan-cli/internal/watch"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Manage vulnerability scans",
}

var scanStartCmd = &cobra.Command{
	Use:   "start <target-url>",
	Short: "Submit a new scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanStart,
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans, newest first",
	RunE:  runScanList,
}

var scanShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show the current state of a scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanShow,
}

var scanWatchCmd = &cobra.Command{
	Use:   "watch <scan-id>",
	Short: "Follow a scan until it finishes, then show its findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanWatch,
}

var scanCancelCmd = &cobra.Command{
	Use:   "cancel <scan-id>",
	Short: "Cancel a pending or running scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanCancel,
}

var scanDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete a scan and its findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanDelete,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanStartCmd, scanListCmd, scanShowCmd, scanWatchCmd,
		scanCancelCmd, scanDeleteCmd)

	scanStartCmd.Flags().String("type", "full", "Scan type (quick, full, custom)")
	scanStartCmd.Flags().Int("depth", 3, "Crawl depth (1-10)")
	scanStartCmd.Flags().Bool("watch", false, "Follow the scan after starting it")

	scanListCmd.Flags().Int("page", 1, "Page number")
	scanListCmd.Flags().Int("page-size", 10, "Page size")
	scanListCmd.Flags().String("status", "", "Filter by status (pending, running, completed, failed, cancelled)")
}

func runScanStart(cmd *cobra.Command, args []string) error {
	scanType, _ := cmd.Flags().GetString("type")
	depth, _ := cmd.Flags().GetInt("depth")
	follow, _ := cmd.Flags().GetBool("watch")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	scan, err := a.client.CreateScan(ctx, api.ScanRequest{
		TargetURL: args[0],
		ScanType:  scanType,
		ScanDepth: depth,
	})
	if err != nil {
		return printAPIError(err)
	}

	fmt.Printf("Scan %d started against %s (%s, depth %d)\n",
		scan.ID, scan.TargetURL, scan.ScanType, scan.ScanDepth)

	if !follow {
		fmt.Printf("Follow it with: securescan scan watch %d\n", scan.ID)
		return nil
	}
	return followScan(ctx, cmd, a, scan.ID)
}

func runScanWatch(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	return followScan(ctx, cmd, a, id)
}

// followScan polls the scan to a terminal status and renders the outcome.
// The vulnerability fetch is gated strictly on status completed.
func followScan(ctx context.Context, cmd *cobra.Command, a *app, id int64) error {
	var lastStatus api.ScanStatus
	errOut := cmd.ErrOrStderr()

	watcher := watch.New(
		func(ctx context.Context) (*api.Scan, error) {
			return a.client.GetScan(ctx, id)
		},
		watch.WithInterval(a.cfg.PollInterval.Std()),
		watch.WithOnUpdate(func(scan *api.Scan) {
			if scan.Status != lastStatus {
				fmt.Fprintf(errOut, "[*] scan %d: %s\n", scan.ID, scan.Status)
				lastStatus = scan.Status
			}
			fmt.Fprintf(errOut, "    progress: %d%%\n", scan.Progress)
		}),
	)

	final, err := watcher.Run(ctx)
	if err != nil {
		return printAPIError(err)
	}

	result := &report.Result{Scan: final}
	if final.Status == api.ScanCompleted {
		vulns, err := a.client.ScanVulnerabilities(ctx, id, api.VulnerabilityFilter{})
		if err != nil {
			return printAPIError(err)
		}
		result.Vulnerabilities = vulns.Vulnerabilities
	}

	if err := render(cmd, result); err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		stats := a.client.Stats()
		fmt.Fprintf(errOut, "[*] %d requests, avg %s\n",
			stats.TotalRequests, stats.AvgDuration.Round(time.Millisecond))
	}
	if final.Status == api.ScanFailed {
		return fmt.Errorf("scan %d failed: %s", final.ID, final.ErrorMessage)
	}
	return nil
}

func runScanList(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	status, _ := cmd.Flags().GetString("status")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	list, err := a.client.ListScans(ctx, api.ListScansOptions{
		Page:     page,
		PageSize: pageSize,
		Status:   api.ScanStatus(status),
	})
	if err != nil {
		return printAPIError(err)
	}

	format, _ := cmd.Flags().GetString("format")
	if strings.EqualFold(format, "json") {
		return writeJSONOut(list)
	}

	if len(list.Scans) == 0 {
		fmt.Println("No scans found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tFINDINGS\tTARGET\tCREATED")
	for _, s := range list.Scans {
		fmt.Fprintf(w, "%d\t%s\t%d%%\t%d\t%s\t%s\n",
			s.ID, s.Status, s.Progress, s.TotalVulnerabilities,
			s.TargetDomain, s.CreatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("Page %d of %d scans total.\n", list.Page, list.Total)
	return nil
}

func runScanShow(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	scan, err := a.client.GetScan(ctx, id)
	if err != nil {
		return printAPIError(err)
	}
	return render(cmd, &report.Result{Scan: scan})
}

func runScanCancel(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	scan, err := a.client.CancelScan(ctx, id)
	if err != nil {
		return printAPIError(err)
	}
	fmt.Printf("Scan %d cancelled.\n", scan.ID)
	return nil
}

func runScanDelete(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	if err := a.client.DeleteScan(ctx, id); err != nil {
		return printAPIError(err)
	}
	fmt.Printf("Scan %d deleted.\n", id)
	return nil
}

// render writes a result to stdout in the format selected by -f.
func render(cmd *cobra.Command, result *report.Result) error {
	format, _ := cmd.Flags().GetString("format")
	reporter, err := report.New(format)
	if err != nil {
		return err
	}
	return reporter.Generate(cmd.Context(), result, os.Stdout)
}
