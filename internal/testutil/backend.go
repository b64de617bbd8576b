// Package testutil provides a mock SecureScan backend for integration
// testing of the CLI. It implements the auth, scan, vulnerability, and
// report endpoints with scriptable scan progressions and token expiry
// knobs, and counts requests per endpoint so tests can assert on exactly
// how often the client called what.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/securescan/securescan-cli/internal/api"
)

// defaultAccessTTL is the expiry minted into access tokens.
const defaultAccessTTL = 15 * time.Minute

type userRecord struct {
	user     api.User
	password string
}

// Backend is a scriptable in-process SecureScan API server.
type Backend struct {
	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	users        map[string]*userRecord // keyed by email
	nextUserID   int64
	validAccess  map[string]string // access token -> email
	validRefresh map[string]string // refresh token -> email

	scans       map[int64]*api.Scan
	scanOrder   []int64
	vulns       map[int64][]api.Vulnerability
	scripts     map[int64][]api.ScanStatus
	failFetch   map[int64]bool
	nextScanID  int64

	counts map[string]int
}

// NewBackend starts a mock backend. The returned Backend must be closed
// after use.
func NewBackend() *Backend {
	b := &Backend{
		secret:       []byte("testutil-signing-secret"),
		users:        make(map[string]*userRecord),
		validAccess:  make(map[string]string),
		validRefresh: make(map[string]string),
		scans:        make(map[int64]*api.Scan),
		vulns:        make(map[int64][]api.Vulnerability),
		scripts:      make(map[int64][]api.ScanStatus),
		failFetch:    make(map[int64]bool),
		counts:       make(map[string]int),
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", b.handleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/refresh", b.handleRefresh).Methods(http.MethodPost)
	v1.HandleFunc("/auth/me", b.handleMe).Methods(http.MethodGet)
	v1.HandleFunc("/scans", b.handleCreateScan).Methods(http.MethodPost)
	v1.HandleFunc("/scans", b.handleListScans).Methods(http.MethodGet)
	v1.HandleFunc("/scans/{id:[0-9]+}", b.handleGetScan).Methods(http.MethodGet)
	v1.HandleFunc("/scans/{id:[0-9]+}", b.handleDeleteScan).Methods(http.MethodDelete)
	v1.HandleFunc("/scans/{id:[0-9]+}/cancel", b.handleCancelScan).Methods(http.MethodPost)
	v1.HandleFunc("/vulnerabilities/scan/{id:[0-9]+}", b.handleScanVulns).Methods(http.MethodGet)
	v1.HandleFunc("/reports/{id:[0-9]+}/{format}", b.handleReport).Methods(http.MethodGet)

	b.srv = httptest.NewServer(r)
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string { return b.srv.URL }

// Close shuts the backend down.
func (b *Backend) Close() { b.srv.Close() }

// ---------------------------------------------------------------------------
// Test control surface
// ---------------------------------------------------------------------------

// AddUser registers an account directly, bypassing the register endpoint.
func (b *Backend) AddUser(email, username, password string) api.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, username, password, "")
}

func (b *Backend) addUserLocked(email, username, password, fullName string) api.User {
	b.nextUserID++
	rec := &userRecord{
		user: api.User{
			ID:        b.nextUserID,
			Email:     email,
			Username:  username,
			FullName:  fullName,
			IsActive:  true,
			CreatedAt: api.Timestamp{Time: time.Now().UTC()},
		},
		password: password,
	}
	b.users[email] = rec
	return rec.user
}

// SeedScan stores a scan record. A zero ID is assigned the next free one.
// The assigned ID is returned.
func (b *Backend) SeedScan(scan api.Scan) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if scan.ID == 0 {
		b.nextScanID++
		scan.ID = b.nextScanID
	} else if scan.ID > b.nextScanID {
		b.nextScanID = scan.ID
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = api.Timestamp{Time: time.Now().UTC()}
	}
	b.scans[scan.ID] = &scan
	b.scanOrder = append(b.scanOrder, scan.ID)
	return scan.ID
}

// SetVulnerabilities attaches findings to a scan and updates its severity
// tallies.
func (b *Backend) SetVulnerabilities(scanID int64, vulns []api.Vulnerability) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vulns[scanID] = vulns
	if scan, ok := b.scans[scanID]; ok {
		applyTallies(scan, vulns)
	}
}

// ScriptScan queues statuses for successive GET /scans/{id} responses.
// Each fetch consumes one queued status; the last one repeats forever.
func (b *Backend) ScriptScan(scanID int64, statuses ...api.ScanStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[scanID] = statuses
}

// FailScanFetch makes GET /scans/{id} answer 500 when on is true.
func (b *Backend) FailScanFetch(scanID int64, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failFetch[scanID] = on
}

// ExpireAccessTokens invalidates every outstanding access token, forcing
// the next authenticated request into the 401 path. Refresh tokens stay
// valid.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validAccess = make(map[string]string)
}

// RevokeRefreshTokens invalidates every outstanding refresh token, making
// refresh attempts fail with 401.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validRefresh = make(map[string]string)
}

// Requests returns how many times the named endpoint was hit. Keys:
// register, login, refresh, me, scans_create, scans_list, scans_get,
// scans_cancel, scans_delete, vulns, reports.
func (b *Backend) Requests(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[key]
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

// mintPair issues a signed access/refresh pair for email and registers
// both as valid.
func (b *Backend) mintPair(email string) api.TokenPair {
	access := b.mintToken(email, "access", defaultAccessTTL)
	refresh := b.mintToken(email, "refresh", 24*time.Hour)
	b.validAccess[access] = email
	b.validRefresh[refresh] = email
	return api.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}
}

func (b *Backend) mintToken(email, typ string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  email,
		"type": typ,
		"jti":  uuid.NewString(),
		"exp":  jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("testutil: sign token: %v", err))
	}
	return token
}

// authorize resolves the bearer token to an account. Callers hold b.mu.
func (b *Backend) authorize(r *http.Request) (*userRecord, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, false
	}
	email, ok := b.validAccess[token]
	if !ok {
		return nil, false
	}
	rec, ok := b.users[email]
	return rec, ok
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["register"]++

	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if _, exists := b.users[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "email already registered")
		return
	}
	var details []string
	if len(req.Username) < 3 {
		details = append(details, "username: must be at least 3 characters")
	}
	if len(req.Password) < 8 {
		details = append(details, "password: must be at least 8 characters")
	}
	if len(details) > 0 {
		writeDetails(w, http.StatusUnprocessableEntity, details)
		return
	}

	user := b.addUserLocked(req.Email, req.Username, req.Password, req.FullName)
	writeJSON(w, http.StatusCreated, user)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["login"]++

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	rec, ok := b.users[req.Email]
	if !ok || rec.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, b.mintPair(req.Email))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["refresh"]++

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	email, ok := b.validRefresh[req.RefreshToken]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, b.mintPair(email))
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["me"]++

	rec, ok := b.authorize(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, rec.user)
}

func (b *Backend) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["scans_create"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var req api.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	targetURL := req.TargetURL
	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		targetURL = "https://" + targetURL
	}
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" {
		writeDetail(w, http.StatusBadRequest, "invalid target URL")
		return
	}

	scanType := req.ScanType
	if scanType == "" {
		scanType = "full"
	}
	depth := req.ScanDepth
	if depth == 0 {
		depth = 3
	}

	b.nextScanID++
	scan := &api.Scan{
		ID:           b.nextScanID,
		TargetURL:    targetURL,
		TargetDomain: parsed.Host,
		ScanType:     scanType,
		ScanDepth:    depth,
		Status:       api.ScanPending,
		CreatedAt:    api.Timestamp{Time: time.Now().UTC()},
	}
	b.scans[scan.ID] = scan
	b.scanOrder = append(b.scanOrder, scan.ID)
	writeJSON(w, http.StatusCreated, scan)
}

func (b *Backend) handleListScans(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["scans_list"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)
	statusFilter := api.ScanStatus(r.URL.Query().Get("status"))

	// Newest first, like the real backend.
	var filtered []api.Scan
	for i := len(b.scanOrder) - 1; i >= 0; i-- {
		scan, ok := b.scans[b.scanOrder[i]]
		if !ok {
			continue
		}
		if statusFilter != "" && scan.Status != statusFilter {
			continue
		}
		filtered = append(filtered, *scan)
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, api.ScanList{
		Scans:    filtered[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (b *Backend) handleGetScan(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["scans_get"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := pathID(r)
	if b.failFetch[id] {
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	scan, ok := b.scans[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}

	if script := b.scripts[id]; len(script) > 0 {
		b.applyStatusLocked(scan, script[0])
		if len(script) > 1 {
			b.scripts[id] = script[1:]
		}
	}
	writeJSON(w, http.StatusOK, scan)
}

func (b *Backend) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["scans_delete"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := pathID(r)
	if _, ok := b.scans[id]; !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}
	delete(b.scans, id)
	delete(b.vulns, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["scans_cancel"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := pathID(r)
	scan, ok := b.scans[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}
	if scan.Status.Terminal() {
		writeDetail(w, http.StatusBadRequest, "only pending or running scans can be cancelled")
		return
	}
	b.applyStatusLocked(scan, api.ScanCancelled)
	writeJSON(w, http.StatusOK, scan)
}

func (b *Backend) handleScanVulns(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["vulns"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := pathID(r)
	if _, ok := b.scans[id]; !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}

	severity := api.Severity(r.URL.Query().Get("severity"))
	vulnType := r.URL.Query().Get("vuln_type")

	list := api.VulnerabilityList{Vulnerabilities: []api.Vulnerability{}}
	for _, v := range b.vulns[id] {
		if severity != "" && v.Severity != severity {
			continue
		}
		if vulnType != "" && v.VulnType != vulnType {
			continue
		}
		list.Vulnerabilities = append(list.Vulnerabilities, v)
		switch v.Severity {
		case api.SeverityCritical:
			list.Critical++
		case api.SeverityHigh:
			list.High++
		case api.SeverityMedium:
			list.Medium++
		case api.SeverityLow:
			list.Low++
		case api.SeverityInfo:
			list.Info++
		}
	}
	list.Total = len(list.Vulnerabilities)
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) handleReport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts["reports"]++

	if _, ok := b.authorize(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := pathID(r)
	if _, ok := b.scans[id]; !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}

	switch mux.Vars(r)["format"] {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprintf(w, "%%PDF-1.4\n%% securescan mock report for scan %d\n", id)
	case "html":
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><h1>Scan %d</h1></body></html>", id)
	default:
		writeDetail(w, http.StatusNotFound, "unknown report format")
	}
}

// applyStatusLocked moves a scan to status and keeps progress and
// timestamps plausible.
func (b *Backend) applyStatusLocked(scan *api.Scan, status api.ScanStatus) {
	now := api.Timestamp{Time: time.Now().UTC()}
	scan.Status = status
	switch status {
	case api.ScanPending:
		scan.Progress = 0
	case api.ScanRunning:
		scan.Progress = 50
		if scan.StartedAt == nil {
			scan.StartedAt = &now
		}
	case api.ScanCompleted, api.ScanFailed, api.ScanCancelled:
		scan.Progress = 100
		if scan.StartedAt == nil {
			scan.StartedAt = &now
		}
		scan.CompletedAt = &now
		if status == api.ScanCompleted {
			applyTallies(scan, b.vulns[scan.ID])
		}
		if status == api.ScanFailed && scan.ErrorMessage == "" {
			scan.ErrorMessage = "scan worker crashed"
		}
	}
}

// applyTallies recomputes the severity counters from the finding set.
func applyTallies(scan *api.Scan, vulns []api.Vulnerability) {
	scan.TotalVulnerabilities = len(vulns)
	scan.CriticalCount, scan.HighCount, scan.MediumCount, scan.LowCount, scan.InfoCount = 0, 0, 0, 0, 0
	for _, v := range vulns {
		switch v.Severity {
		case api.SeverityCritical:
			scan.CriticalCount++
		case api.SeverityHigh:
			scan.HighCount++
		case api.SeverityMedium:
			scan.MediumCount++
		case api.SeverityLow:
			scan.LowCount++
		case api.SeverityInfo:
			scan.InfoCount++
		}
	}
}

// ---------------------------------------------------------------------------
// Small helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeDetails(w http.ResponseWriter, status int, details []string) {
	writeJSON(w, status, map[string][]string{"detail": details})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
