package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/securescan/securescan-cli/internal/api"
)

func sampleResult() *Result {
	started := api.Timestamp{Time: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)}
	completed := api.Timestamp{Time: time.Date(2026, 8, 20, 10, 4, 30, 0, time.UTC)}
	return &Result{
		Scan: &api.Scan{
			ID:                   42,
			TargetURL:            "https://shop.example.com",
			TargetDomain:         "shop.example.com",
			ScanType:             "full",
			ScanDepth:            3,
			Status:               api.ScanCompleted,
			Progress:             100,
			TotalVulnerabilities: 2,
			CriticalCount:        1,
			HighCount:            1,
			StartedAt:            &started,
			CompletedAt:          &completed,
			CreatedAt:            started,
		},
		Vulnerabilities: []api.Vulnerability{
			{
				ID:             1,
				ScanID:         42,
				VulnType:       "sql_injection",
				Name:           "SQL Injection in login form",
				Severity:       api.SeverityCritical,
				URL:            "https://shop.example.com/login",
				Parameter:      "username",
				Method:         "POST",
				Description:    "Boolean-based blind injection.",
				Recommendation: "Use parameterized queries.",
				CWEID:          "CWE-89",
			},
			{
				ID:       2,
				ScanID:   42,
				VulnType: "xss",
				Name:     "Reflected XSS in search",
				Severity: api.SeverityHigh,
				URL:      "https://shop.example.com/search",
				Method:   "GET",
			},
		},
	}
}

func TestNewSelectsReporter(t *testing.T) {
	for _, format := range []string{"text", "TEXT", "json", "Json"} {
		r, err := New(format)
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		if got := r.Format(); got != strings.ToLower(format) {
			t.Fatalf("Format() = %q for New(%q)", got, format)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTextReportContent(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{}).Generate(context.Background(), sampleResult(), &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Scan #42",
		"https://shop.example.com",
		"completed (100%)",
		"Findings: 2 total",
		"[CRITICAL] SQL Injection in login form",
		"Parameter:      username (POST)",
		"CWE:            CWE-89",
		"[HIGH] Reflected XSS in search",
		"Duration: 270.0s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestTextReportWithoutFindings(t *testing.T) {
	result := sampleResult()
	result.Vulnerabilities = nil
	result.Scan.Status = api.ScanFailed
	result.Scan.ErrorMessage = "scan worker crashed"

	var buf bytes.Buffer
	if err := (&TextReporter{}).Generate(context.Background(), result, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "scan worker crashed") {
		t.Fatalf("text report missing error message:\n%s", out)
	}
	if !strings.Contains(out, "No findings available (scan did not complete).") {
		t.Fatalf("text report missing non-completion note:\n%s", out)
	}
}

func TestJSONReportRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONReporter{}).Generate(context.Background(), sampleResult(), &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var out struct {
		SchemaVersion   string              `json:"schema_version"`
		Tool            string              `json:"tool"`
		Scan            api.Scan            `json:"scan"`
		Vulnerabilities []api.Vulnerability `json:"vulnerabilities"`
		Summary         struct {
			TotalVulnerabilities int  `json:"total_vulnerabilities"`
			Critical             int  `json:"critical"`
			Terminal             bool `json:"terminal"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out.SchemaVersion != "1.0" || out.Tool != "securescan-cli" {
		t.Fatalf("header = %q/%q", out.SchemaVersion, out.Tool)
	}
	if out.Scan.ID != 42 || len(out.Vulnerabilities) != 2 {
		t.Fatalf("scan = %+v, vulns = %d", out.Scan, len(out.Vulnerabilities))
	}
	if out.Summary.TotalVulnerabilities != 2 || out.Summary.Critical != 1 || !out.Summary.Terminal {
		t.Fatalf("summary = %+v", out.Summary)
	}
}

func TestJSONReportEmptyFindingsIsArray(t *testing.T) {
	result := sampleResult()
	result.Vulnerabilities = nil

	var buf bytes.Buffer
	if err := (&JSONReporter{Compact: true}).Generate(context.Background(), result, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(buf.String(), `"vulnerabilities":[]`) {
		t.Fatalf("nil findings must render as [], got:\n%s", buf.String())
	}
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := (&TextReporter{}).Generate(ctx, sampleResult(), &buf); err == nil {
		t.Fatal("expected context error")
	}
	if err := (&JSONReporter{}).Generate(ctx, sampleResult(), &buf); err == nil {
		t.Fatal("expected context error")
	}
}
