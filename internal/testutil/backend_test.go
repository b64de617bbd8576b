package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/securescan/securescan-cli/internal/api"
)

func login(t *testing.T, b *Backend, email, password string) api.TokenPair {
	t.Helper()

	body := strings.NewReader(`{"email":"` + email + `","password":"` + password + `"}`)
	resp, err := http.Post(b.URL()+"/api/v1/auth/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var pair api.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func TestBackendLoginAndAuthorize(t *testing.T) {
	b := NewBackend()
	defer b.Close()
	b.AddUser("dev@example.com", "dev", "hunter22")

	pair := login(t, b, "dev@example.com", "hunter22")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("pair = %+v", pair)
	}

	req, _ := http.NewRequest(http.MethodGet, b.URL()+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}

	b.ExpireAccessTokens()
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me after expiry: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after expiry status = %d, want 401", resp.StatusCode)
	}

	if b.Requests("login") != 1 || b.Requests("me") != 2 {
		t.Fatalf("counts: login=%d me=%d", b.Requests("login"), b.Requests("me"))
	}
}

func TestBackendScriptedScanProgression(t *testing.T) {
	b := NewBackend()
	defer b.Close()
	b.AddUser("dev@example.com", "dev", "hunter22")
	pair := login(t, b, "dev@example.com", "hunter22")

	id := b.SeedScan(api.Scan{TargetURL: "https://t.example.com", Status: api.ScanPending})
	b.ScriptScan(id, api.ScanRunning, api.ScanCompleted)

	fetch := func() api.Scan {
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/scans/%d", b.URL(), id), nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get scan: %v", err)
		}
		defer resp.Body.Close()
		var scan api.Scan
		if err := json.NewDecoder(resp.Body).Decode(&scan); err != nil {
			t.Fatalf("decode scan: %v", err)
		}
		return scan
	}

	if got := fetch(); got.Status != api.ScanRunning || got.Progress != 50 {
		t.Fatalf("first fetch = %+v", got)
	}
	if got := fetch(); got.Status != api.ScanCompleted || got.Progress != 100 {
		t.Fatalf("second fetch = %+v", got)
	}
	// The last scripted status repeats.
	if got := fetch(); got.Status != api.ScanCompleted {
		t.Fatalf("third fetch = %+v", got)
	}
}
