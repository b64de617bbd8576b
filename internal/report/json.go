package report

import (
	"context"
	"encoding/json"
	"io"

	"github.com/securescan/securescan-cli/internal/api"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// jsonOutput is the top-level JSON structure.
type jsonOutput struct {
	SchemaVersion   string              `json:"schema_version"`
	Tool            string              `json:"tool"`
	Scan            *api.Scan           `json:"scan"`
	Vulnerabilities []api.Vulnerability `json:"vulnerabilities"`
	Summary         jsonSummary         `json:"summary"`
}

// jsonSummary repeats the severity tallies for quick consumption.
type jsonSummary struct {
	TotalVulnerabilities int  `json:"total_vulnerabilities"`
	Critical             int  `json:"critical"`
	High                 int  `json:"high"`
	Medium               int  `json:"medium"`
	Low                  int  `json:"low"`
	Info                 int  `json:"info"`
	Terminal             bool `json:"terminal"`
}

// Generate writes the JSON result to w.
func (r *JSONReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scan := result.Scan
	vulns := result.Vulnerabilities
	if vulns == nil {
		vulns = []api.Vulnerability{}
	}

	output := jsonOutput{
		SchemaVersion:   "1.0",
		Tool:            "securescan-cli",
		Scan:            scan,
		Vulnerabilities: vulns,
		Summary: jsonSummary{
			TotalVulnerabilities: scan.TotalVulnerabilities,
			Critical:             scan.CriticalCount,
			High:                 scan.HighCount,
			Medium:               scan.MediumCount,
			Low:                  scan.LowCount,
			Info:                 scan.InfoCount,
			Terminal:             scan.Status.Terminal(),
		},
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output)
}
