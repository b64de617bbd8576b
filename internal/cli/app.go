package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/api"
	"github.com/securescan/securescan-cli/internal/config"
	"github.com/securescan/securescan-cli/internal/session"
)

// app bundles the per-invocation wiring: config, session store, and the
// authenticated API client.
type app struct {
	cfg    *config.Config
	store  session.Store
	tokens *session.HostTokens
	client *api.Client
}

// newApp loads config, opens the session store, and builds the API client.
// The caller must Close the returned app.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	setupLogging(cmd, cfg)

	host, err := hostOf(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.SessionDBPath()
	if err != nil {
		return nil, err
	}
	store, err := session.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	tokens, err := session.BindHost(cmd.Context(), store, host)
	if err != nil {
		store.Close()
		return nil, err
	}

	client, err := api.New(api.Options{
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout.Std(),
		ProxyURL:           cfg.Proxy,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MaxRPS:             cfg.MaxRPS,
	}, tokens)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, tokens: tokens, client: client}, nil
}

// Close logs the client's request stats and releases the session store.
func (a *app) Close() {
	stats := a.client.Stats()
	slog.Debug("api client stats",
		"requests", stats.TotalRequests,
		"avg_duration", stats.AvgDuration)

	if err := a.store.Close(); err != nil {
		slog.Debug("closing session store", "err", err)
	}
}

// setupLogging configures the process-wide logger from config and flags.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := slog.LevelWarn
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// hostOf extracts the session key (host:port) from the base URL.
func hostOf(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", baseURL)
	}
	return u.Host, nil
}

// cmdContext returns a context cancelled by CTRL+C.
func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

// parseScanID converts a scan ID argument.
func parseScanID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scan ID %q", arg)
	}
	return id, nil
}

// writeJSONOut dumps a value to stdout as indented JSON.
func writeJSONOut(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAPIError renders validation details individually, the way the
// backend intends them to be shown.
func printAPIError(err error) error {
	var apiErr *api.Error
	if api.IsValidation(err) && errors.As(err, &apiErr) && len(apiErr.Messages()) > 1 {
		for _, msg := range apiErr.Messages() {
			fmt.Fprintf(os.Stderr, "  - %s\n", msg)
		}
		return fmt.Errorf("request rejected with %d validation errors", len(apiErr.Messages()))
	}
	return err
}
