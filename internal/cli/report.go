package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/api"
)

var reportCmd = &cobra.Command{
	Use:   "report <scan-id>",
	Short: "Download the rendered report for a completed scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("type", "pdf", "Report format (pdf, html)")
	reportCmd.Flags().StringP("output", "o", "", "Output file (default securescan_report_<id>.<type>)")
}

func runReport(cmd *cobra.Command, args []string) error {
	id, err := parseScanID(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("type")
	output, _ := cmd.Flags().GetString("output")

	var reportFormat api.ReportFormat
	switch format {
	case "pdf":
		reportFormat = api.ReportPDF
	case "html":
		reportFormat = api.ReportHTML
	default:
		return fmt.Errorf("unsupported report type %q (want pdf or html)", format)
	}

	if output == "" {
		output = fmt.Sprintf("securescan_report_%d.%s", id, format)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	if err := a.client.DownloadReport(ctx, id, reportFormat, f); err != nil {
		f.Close()
		os.Remove(output)
		return printAPIError(err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", output)
	return nil
}
