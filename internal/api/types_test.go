package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScanStatusTerminal(t *testing.T) {
	terminal := []ScanStatus{ScanCompleted, ScanFailed, ScanCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
	for _, s := range []ScanStatus{ScanPending, ScanRunning, ScanStatus("unknown")} {
		if s.Terminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}

func TestTimestampParsesBackendVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "rfc3339",
			in:   `"2026-08-20T10:30:00Z"`,
			want: time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "naive with microseconds",
			in:   `"2026-08-20T10:30:00.123456"`,
			want: time.Date(2026, 8, 20, 10, 30, 0, 123456000, time.UTC),
		},
		{
			name: "naive with space separator",
			in:   `"2026-08-20 10:30:00"`,
			want: time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "null",
			in:   `null`,
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if !ts.Equal(tt.want) {
				t.Fatalf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}

func TestScanDecodesBackendPayload(t *testing.T) {
	payload := `{
		"id": 42,
		"target_url": "https://shop.example.com",
		"target_domain": "shop.example.com",
		"scan_type": "full",
		"scan_depth": 3,
		"status": "completed",
		"progress": 100,
		"total_vulnerabilities": 2,
		"critical_count": 1,
		"high_count": 1,
		"started_at": "2026-08-20T10:00:00.500000",
		"completed_at": "2026-08-20T10:05:00Z",
		"created_at": "2026-08-20 09:59:58"
	}`

	var scan Scan
	if err := json.Unmarshal([]byte(payload), &scan); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if scan.ID != 42 || scan.Status != ScanCompleted || scan.Progress != 100 {
		t.Fatalf("scan = %+v", scan)
	}
	if scan.StartedAt == nil || scan.CompletedAt == nil {
		t.Fatal("timestamps not decoded")
	}
	if scan.TotalVulnerabilities != 2 || scan.CriticalCount != 1 {
		t.Fatalf("tallies = %+v", scan)
	}
}
