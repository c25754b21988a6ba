package config

const (
	defaultStateDir              = "~/.local/share/cardscan"
	defaultServerHost            = "127.0.0.1"
	defaultServerPort            = 8000
	defaultMaxBatchSize          = 10
	defaultVisionBaseURL         = "https://vision.googleapis.com"
	defaultVisionTimeoutSeconds  = 15
	defaultScryfallBaseURL       = "https://api.scryfall.com"
	defaultScryfallUserAgent     = "cardscan/dev"
	defaultScryfallTimeoutSecond = 10
	defaultLedgerPath            = "cards.csv"
	defaultLedgerBackend         = "csv"
	defaultScanConcurrency       = 4
	defaultCachePath             = "~/.cache/cardscan/lookups.json"
	defaultCameraWidth           = 640
	defaultCameraHeight          = 480
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNtfyTimeoutSeconds    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Server: Server{
			Host:         defaultServerHost,
			Port:         defaultServerPort,
			MaxBatchSize: defaultMaxBatchSize,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			TimeoutSeconds: defaultVisionTimeoutSeconds,
		},
		Scryfall: Scryfall{
			BaseURL:        defaultScryfallBaseURL,
			UserAgent:      defaultScryfallUserAgent,
			TimeoutSeconds: defaultScryfallTimeoutSecond,
		},
		Ledger: Ledger{
			Path:    defaultLedgerPath,
			Backend: defaultLedgerBackend,
		},
		Scan: Scan{
			Concurrency: defaultScanConcurrency,
		},
		Cache: Cache{
			Path: defaultCachePath,
		},
		Camera: Camera{
			Width:  defaultCameraWidth,
			Height: defaultCameraHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
