// Package api implements the authenticated HTTP client for the SecureScan
// backend. All commands talk to the service through this package.
package api

import (
	"fmt"
	"strings"
	"time"
)

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// User is the account record returned by the auth endpoints.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
}

// ScanStatus is the lifecycle state of a scan.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// Terminal reports whether no further status transition can occur.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanCompleted, ScanFailed, ScanCancelled:
		return true
	}
	return false
}

// Severity is the severity classification assigned by the scanner.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Scan is a server-owned scan record. The client only ever holds a
// read-only copy per fetch.
type Scan struct {
	ID           int64      `json:"id"`
	TargetURL    string     `json:"target_url"`
	TargetDomain string     `json:"target_domain"`
	ScanType     string     `json:"scan_type"`
	ScanDepth    int        `json:"scan_depth"`
	Status       ScanStatus `json:"status"`
	Progress     int        `json:"progress"`

	TotalVulnerabilities int `json:"total_vulnerabilities"`
	CriticalCount        int `json:"critical_count"`
	HighCount            int `json:"high_count"`
	MediumCount          int `json:"medium_count"`
	LowCount             int `json:"low_count"`
	InfoCount            int `json:"info_count"`

	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *Timestamp `json:"started_at,omitempty"`
	CompletedAt  *Timestamp `json:"completed_at,omitempty"`
	CreatedAt    Timestamp  `json:"created_at"`
}

// ScanList is one page of scans.
type ScanList struct {
	Scans    []Scan `json:"scans"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Vulnerability is a single finding attached to a completed scan.
type Vulnerability struct {
	ID              int64      `json:"id"`
	ScanID          int64      `json:"scan_id"`
	VulnType        string     `json:"vuln_type"`
	Name            string     `json:"name"`
	Severity        Severity   `json:"severity"`
	URL             string     `json:"url"`
	Parameter       string     `json:"parameter,omitempty"`
	Method          string     `json:"method"`
	Description     string     `json:"description"`
	Evidence        string     `json:"evidence,omitempty"`
	Recommendation  string     `json:"recommendation,omitempty"`
	CWEID           string     `json:"cwe_id,omitempty"`
	CVSSScore       float64    `json:"cvss_score,omitempty"`
	IsFalsePositive bool       `json:"is_false_positive"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
}

// VulnerabilityList is the full finding set for a scan with severity tallies.
type VulnerabilityList struct {
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Total           int             `json:"total"`
	Critical        int             `json:"critical"`
	High            int             `json:"high"`
	Medium          int             `json:"medium"`
	Low             int             `json:"low"`
	Info            int             `json:"info"`
}

// ScanRequest is the payload for creating a new scan.
type ScanRequest struct {
	TargetURL string `json:"target_url"`
	ScanType  string `json:"scan_type,omitempty"`
	ScanDepth int    `json:"scan_depth,omitempty"`
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Timestamp unmarshals the backend's datetime strings. The service emits
// both RFC 3339 and naive timestamps without a zone suffix; naive values
// are interpreted as UTC.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order during unmarshaling.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("api: parse timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
