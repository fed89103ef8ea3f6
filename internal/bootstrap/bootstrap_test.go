package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/grant-tagger/internal/config"
)

func fakeLLM(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + reply + `"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sqliteConfig(llmURL string) config.Config {
	return config.Config{
		StorageDriver:         config.StorageDriverSQLite,
		SQLitePath:            ":memory:",
		LLMBaseURL:            llmURL,
		LLMAPIKey:             "test-key",
		LLMTimeoutSeconds:     5,
		LLMBreakerEnabled:     true,
		LLMBreakerMinRequests: 10,
		SeedFile:              SampleSeed,
	}
}

func TestNewWiresSQLiteStoreAndSeedsOnce(t *testing.T) {
	llm := fakeLLM(t, "agriculture, dairy, not-a-tag")
	app, err := New(context.Background(), sqliteConfig(llm.URL), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil {
		t.Fatalf("expected queue to be disabled without NATS_URL")
	}

	stored, err := app.SeedIfEmpty(context.Background())
	if err != nil {
		t.Fatalf("SeedIfEmpty() error = %v", err)
	}
	if stored != 8 {
		t.Fatalf("expected 8 seeded grants, got %d", stored)
	}

	grants, err := app.Catalog.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	for _, grant := range grants {
		if strings.Join(grant.Tags, ",") != "agriculture,dairy" {
			t.Fatalf("unexpected tags on %q: %v", grant.Name, grant.Tags)
		}
	}

	again, err := app.SeedIfEmpty(context.Background())
	if err != nil {
		t.Fatalf("second SeedIfEmpty() error = %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no reseed on a populated store, got %d", again)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := sqliteConfig("http://127.0.0.1:1")
	cfg.StorageDriver = "mongo"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestBreakerConfigFromEnvConfig(t *testing.T) {
	cfg := config.Config{
		LLMBreakerEnabled:       false,
		LLMBreakerMinRequests:   4,
		LLMBreakerFailureRatio:  0.25,
		LLMBreakerOpenTimeoutMS: 1500,
	}
	got := BreakerConfig(cfg)
	if got.BreakerEnabled || got.BreakerMinRequests != 4 || got.BreakerFailureRatio != 0.25 {
		t.Fatalf("unexpected breaker config: %+v", got)
	}
	if got.BreakerOpenTimeout.Milliseconds() != 1500 {
		t.Fatalf("unexpected open timeout %s", got.BreakerOpenTimeout)
	}
}

func TestLoadSeedSample(t *testing.T) {
	grants, err := LoadSeed("Sample")
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(grants) == 0 {
		t.Fatalf("expected sample grants")
	}
}
