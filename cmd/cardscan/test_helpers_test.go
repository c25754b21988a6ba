package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cardscan/internal/api"
	"cardscan/internal/batch"
	"cardscan/internal/card"
	"cardscan/internal/config"
	"cardscan/internal/daemon"
	"cardscan/internal/ledger"
	"cardscan/internal/logging"
	"cardscan/internal/scan"
	"cardscan/internal/services"
	"cardscan/internal/testsupport"
)

// labelScanner resolves images whose bytes name a known card. Empty images
// have no text and anything else is not found.
type labelScanner struct{}

var knownCards = map[string]card.Record{
	"Forest": {Name: "Forest", Type: "Basic Land — Forest", Colour: "", Quantity: 1},
	"Llanowar Elves": {
		Name:         "Llanowar Elves",
		Type:         "Creature — Elf Druid",
		CreatureType: "Elf Druid",
		Colour:       "G",
		ManaCost:     card.Text("{G}"),
		Power:        card.Text("1"),
		Toughness:    card.Text("1"),
		OracleText:   "{T}: Add {G}.",
		Quantity:     1,
	},
}

func (labelScanner) ScanBatch(_ context.Context, images []scan.Image, maxSize int) ([]scan.Outcome, error) {
	if err := batch.CheckSize(len(images), maxSize); err != nil {
		return nil, err
	}
	outcomes := make([]scan.Outcome, len(images))
	for i, img := range images {
		label := strings.TrimSpace(string(img.Data))
		o := scan.Outcome{Index: i, Filename: img.Filename, Candidate: label}
		switch rec, ok := knownCards[label]; {
		case label == "":
			o.Status = scan.StatusNoText
			o.Err = services.ErrNoTextDetected
		case ok:
			o.Status = scan.StatusOK
			o.MatchScore = 1
			o.Card = &rec
		default:
			o.Status = scan.StatusNotFound
			o.Err = services.ErrCardNotFound
		}
		outcomes[i] = o
	}
	return outcomes, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      ledger.Store
	server     *httptest.Server
	handler    http.Handler
	configPath string
	imageDir   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	scryfall := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Island","type_line":"Basic Land — Island"}`))
	}))
	t.Cleanup(scryfall.Close)

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Scryfall.BaseURL = scryfall.URL
	cfg.Vision.APIKey = "test-key"

	store := testsupport.MustOpenLedger(t, cfg)
	cards := api.NewCardService(labelScanner{}, store, cfg.Server.MaxBatchSize)
	d, err := daemon.New(cfg, cards, logging.NewNop(), daemon.WithVersion("test"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		server:     srv,
		handler:    d.Handler(),
		configPath: configPath,
		imageDir:   filepath.Join(base, "images"),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	fileCfg := *cfg
	// The CLI reaches the test server through --server; the file only needs
	// a port that validates.
	fileCfg.Server.Port = 8000
	data, err := toml.Marshal(fileCfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, serverURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if serverURL != "" {
		flags = append(flags, "--server", serverURL)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.server.URL, e.configPath)
	return out, err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
