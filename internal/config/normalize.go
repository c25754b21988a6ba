package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeProviders()
	c.normalizeLogging()
	return nil
}

// applyEnv lets environment variables override file values. The variable
// names match the ones the scanner has always read.
func (c *Config) applyEnv() error {
	stringVars := []struct {
		name   string
		target *string
	}{
		{"API_HOST", &c.Server.Host},
		{"CARDSCAN_API_TOKEN", &c.Server.APIToken},
		{"GOOGLE_APPLICATION_CREDENTIALS", &c.Vision.CredentialsPath},
		{"GOOGLE_VISION_API_KEY", &c.Vision.APIKey},
		{"SCRYFALL_API_URL", &c.Scryfall.BaseURL},
		{"CSV_PATH", &c.Ledger.Path},
		{"CARDSCAN_LEDGER_BACKEND", &c.Ledger.Backend},
		{"CARDSCAN_LOG_LEVEL", &c.Logging.Level},
		{"CARDSCAN_NTFY_TOPIC", &c.Notifications.NtfyTopic},
	}
	for _, v := range stringVars {
		if value, ok := os.LookupEnv(v.name); ok && strings.TrimSpace(value) != "" {
			*v.target = strings.TrimSpace(value)
		}
	}

	intVars := []struct {
		name   string
		target *int
	}{
		{"API_PORT", &c.Server.Port},
		{"MAX_BATCH_SIZE", &c.Server.MaxBatchSize},
		{"CAMERA_WIDTH", &c.Camera.Width},
		{"CAMERA_HEIGHT", &c.Camera.Height},
	}
	for _, v := range intVars {
		value, ok := os.LookupEnv(v.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", v.name, value)
		}
		*v.target = parsed
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if c.Vision.CredentialsPath, err = expandPath(strings.TrimSpace(c.Vision.CredentialsPath)); err != nil {
		return fmt.Errorf("vision.credentials_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Host == "" {
		c.Server.Host = defaultServerHost
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
}

func (c *Config) normalizeProviders() {
	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	c.Vision.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vision.BaseURL), "/")
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = defaultVisionBaseURL
	}
	c.Scryfall.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scryfall.BaseURL), "/")
	if c.Scryfall.BaseURL == "" {
		c.Scryfall.BaseURL = defaultScryfallBaseURL
	}
	c.Scryfall.UserAgent = strings.TrimSpace(c.Scryfall.UserAgent)
	if c.Scryfall.UserAgent == "" {
		c.Scryfall.UserAgent = defaultScryfallUserAgent
	}
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
