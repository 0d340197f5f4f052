package extension

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/tierledger"
)

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name         string
		programmatic Config
		file         Config
		loaded       bool
		environ      map[string]string
		want         Config
		wantErr      bool
	}{
		{
			name: "defaults only",
			want: DefaultConfig(),
		},
		{
			name:         "programmatic without file",
			programmatic: Config{MaxRetries: 7, CatalogRoot: "/srv/pics"},
			want: Config{
				MaxRetries:       7,
				CatalogRoot:      "/srv/pics",
				Timezone:         "UTC",
				DefaultAdminDays: 30,
				CatalogCacheTTL:  5 * time.Minute,
			},
		},
		{
			name:         "file takes precedence and programmatic fills gaps",
			programmatic: Config{MaxRetries: 7, DisableMigrate: true, PriceFile: "code.yaml"},
			file:         Config{MaxRetries: 2, Timezone: "Asia/Shanghai"},
			loaded:       true,
			want: Config{
				DisableMigrate:   true,
				PriceFile:        "code.yaml",
				MaxRetries:       2,
				Timezone:         "Asia/Shanghai",
				DefaultAdminDays: 30,
				CatalogCacheTTL:  5 * time.Minute,
			},
		},
		{
			name:   "environment overrides file",
			file:   Config{CatalogRoot: "/from/yaml", DefaultAdminDays: 14},
			loaded: true,
			environ: map[string]string{
				"TIERLEDGER_CATALOG_ROOT":      "/from/env",
				"TIERLEDGER_CATALOG_EXTS":      "jpg,png",
				"TIERLEDGER_SYNC_ON_START":     "true",
				"TIERLEDGER_CATALOG_CACHE_TTL": "90s",
			},
			want: Config{
				CatalogRoot:       "/from/env",
				CatalogExtensions: []string{"jpg", "png"},
				SyncOnStart:       true,
				Timezone:          "UTC",
				DefaultAdminDays:  14,
				MaxRetries:        3,
				CatalogCacheTTL:   90 * time.Second,
			},
		},
		{
			name:         "required config missing",
			programmatic: Config{RequireConfig: true},
			wantErr:      true,
		},
		{
			name:    "malformed environment value",
			environ: map[string]string{"TIERLEDGER_MAX_RETRIES": "lots"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := tt.environ
			if environ == nil {
				environ = map[string]string{}
			}
			got, err := resolveConfig(tt.programmatic, tt.file, tt.loaded, environ)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveConfig() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.DisableMigrate != tt.want.DisableMigrate ||
				got.PriceFile != tt.want.PriceFile ||
				got.CatalogRoot != tt.want.CatalogRoot ||
				got.SyncOnStart != tt.want.SyncOnStart ||
				got.Timezone != tt.want.Timezone ||
				got.DefaultAdminDays != tt.want.DefaultAdminDays ||
				got.MaxRetries != tt.want.MaxRetries ||
				got.CatalogCacheTTL != tt.want.CatalogCacheTTL {
				t.Errorf("resolveConfig() = %+v\nwant %+v", got, tt.want)
			}
			if len(got.CatalogExtensions) != len(tt.want.CatalogExtensions) {
				t.Fatalf("CatalogExtensions = %v, want %v", got.CatalogExtensions, tt.want.CatalogExtensions)
			}
			for i := range got.CatalogExtensions {
				if got.CatalogExtensions[i] != tt.want.CatalogExtensions[i] {
					t.Errorf("CatalogExtensions = %v, want %v", got.CatalogExtensions, tt.want.CatalogExtensions)
				}
			}
		})
	}
}

func TestConfigureAndStart(t *testing.T) {
	dir := t.TempDir()
	prices := filepath.Join(dir, "prices.yaml")
	schedule := "packages:\n  - {level: 1, days: 7, points: 20}\n  - {level: 2, days: 7, points: 50}\n"
	if err := os.WriteFile(prices, []byte(schedule), 0o600); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(dir, "pics")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.jpg", "b.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	e := New(
		WithPriceFile(prices),
		WithCatalogRoot(root, true, "jpg", "png"),
		WithEnvironment(map[string]string{}),
	)
	if err := e.configure(Config{}, false); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := e.start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.Health(ctx); err != nil {
		t.Fatalf("Health() = %v", err)
	}

	l := e.Engine()
	if got := l.Durations(); len(got) != 1 || got[0] != 7 {
		t.Errorf("Durations() = %v, want [7]", got)
	}

	if _, err := l.GrantPoints(ctx, 9, 100); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for range 2 {
		d, err := l.RequestDistribution(ctx, 9)
		if err != nil {
			t.Fatal(err)
		}
		seen[filepath.Base(d.Item.Path)] = true
	}
	if !seen["a.jpg"] || !seen["b.png"] {
		t.Errorf("delivered %v, want both images", seen)
	}
	if _, err := l.RequestDistribution(ctx, 9); err == nil || !tierledger.IsRejection(err) {
		t.Errorf("third request err = %v, want a rejection", err)
	}
}

func TestConfigureErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"missing price file", []Option{WithPriceFile(filepath.Join(t.TempDir(), "none.yaml"))}},
		{"unknown timezone", []Option{WithTimezone("Mars/Olympus_Mons")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(append(tt.opts, WithEnvironment(map[string]string{}))...)
			if err := e.configure(Config{}, false); err == nil {
				t.Error("configure() should fail")
			}
		})
	}
}

func TestStartBeforeRegister(t *testing.T) {
	if err := New().start(context.Background()); err == nil {
		t.Error("start() on an unconfigured extension should fail")
	}
}
