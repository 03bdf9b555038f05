package app

import (
	"context"
	"testing"
	"time"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/config"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/store"
)

func testConfig(t *testing.T, values map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWith(func(key string) string { return values[key] })
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	return cfg
}

func TestNew_MemoryStoreByDefault(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*store.Memory); !ok {
		t.Errorf("Store = %T, want *store.Memory", a.Store)
	}

	want := []string{retrieval.LabelGVizJSON, retrieval.LabelGVizScript, retrieval.LabelCSVExport, retrieval.LabelOpenSheet}
	got := a.Chain.Labels()
	if len(got) != len(want) {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNew_BadDatabaseURL(t *testing.T) {
	cfg := testConfig(t, map[string]string{"DATABASE_URL": "postgres://%zz"})
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("New() expected error for an unparseable database URL")
	}
}

func TestChainOptions(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"DOCS_BASE_URL":                "http://docs.local",
		"FETCH_TIMEOUT":                "3s",
		"FETCH_DISABLE_SCRIPT_CHANNEL": "true",
	})

	opts := ChainOptions(cfg)
	if opts.Endpoints.DocsBaseURL != "http://docs.local" {
		t.Errorf("DocsBaseURL = %q", opts.Endpoints.DocsBaseURL)
	}
	if opts.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", opts.Timeout)
	}
	if !opts.DisableScriptChannel {
		t.Error("DisableScriptChannel should be set")
	}

	sweep := SweepConfig(cfg)
	if sweep.Interval != 5*time.Minute || sweep.HistoryRetention != 720*time.Hour {
		t.Errorf("SweepConfig() = %+v", sweep)
	}
}

func TestDatabaseName(t *testing.T) {
	if got := databaseName("postgres://user:pw@localhost:5432/projstat?sslmode=disable"); got != "projstat" {
		t.Errorf("databaseName() = %q, want %q", got, "projstat")
	}
}
