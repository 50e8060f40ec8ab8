package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/cardsight/internal/grouping"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Detection.GroupingThreshold != 0.1 {
		t.Errorf("expected grouping threshold 0.1, got %v", cfg.Detection.GroupingThreshold)
	}
	if cfg.InferenceInterval() != 250*time.Millisecond {
		t.Errorf("expected 250ms inference interval, got %v", cfg.InferenceInterval())
	}
	if cfg.Policy() != grouping.SingletonsMerged {
		t.Errorf("expected merge policy, got %q", cfg.Policy())
	}

	tc := cfg.Tracker()
	if tc.ConfirmationTicks != 5 || tc.DisappearanceTicks != 5 {
		t.Errorf("unexpected tracker config: %+v", tc)
	}
	if lc := cfg.Ledger(); lc.Sets != 1 || lc.CopiesPerRank != 4 {
		t.Errorf("unexpected ledger config: %+v", lc)
	}
}

func TestLoad(t *testing.T) {
	t.Run("overrides only present keys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cardsight.yaml")
		data := []byte(`detection:
  confirmation_ticks: 3
  singleton_policy: separate
shoe:
  sets: 6
capture:
  source: video
  video_path: table.mp4
`)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		if cfg.Detection.ConfirmationTicks != 3 {
			t.Errorf("expected confirmation 3, got %d", cfg.Detection.ConfirmationTicks)
		}
		if cfg.Policy() != grouping.SingletonsSeparate {
			t.Errorf("expected separate policy, got %q", cfg.Policy())
		}
		if cfg.Shoe.Sets != 6 || cfg.Shoe.CopiesPerRank != 4 {
			t.Errorf("unexpected shoe: %+v", cfg.Shoe)
		}
		if cfg.Detection.DisappearanceTicks != 5 {
			t.Errorf("expected default disappearance, got %d", cfg.Detection.DisappearanceTicks)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("loaded config should validate: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("detection: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("overlays values", func(t *testing.T) {
		cfg := Default()
		err := cfg.ApplyEnv(envMap(map[string]string{
			"CARDSIGHT_CONFIRMATION_TICKS":    "2",
			"CARDSIGHT_GROUPING_THRESHOLD":    "0.25",
			"CARDSIGHT_ADDR":                  ":9090",
			"CARDSIGHT_SINGLETON_POLICY":      "separate",
			"CARDSIGHT_INFERENCE_INTERVAL_MS": "100",
		}))
		if err != nil {
			t.Fatalf("ApplyEnv: %v", err)
		}

		if cfg.Detection.ConfirmationTicks != 2 {
			t.Errorf("expected confirmation 2, got %d", cfg.Detection.ConfirmationTicks)
		}
		if cfg.Detection.GroupingThreshold != 0.25 {
			t.Errorf("expected grouping 0.25, got %v", cfg.Detection.GroupingThreshold)
		}
		if cfg.Server.Addr != ":9090" {
			t.Errorf("expected addr :9090, got %q", cfg.Server.Addr)
		}
		if cfg.InferenceInterval() != 100*time.Millisecond {
			t.Errorf("expected 100ms, got %v", cfg.InferenceInterval())
		}
	})

	t.Run("bad number", func(t *testing.T) {
		cfg := Default()
		err := cfg.ApplyEnv(envMap(map[string]string{"CARDSIGHT_SETS": "six"}))
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("no variables", func(t *testing.T) {
		cfg := Default()
		if err := cfg.ApplyEnv(envMap(nil)); err != nil {
			t.Fatalf("ApplyEnv: %v", err)
		}
		if cfg != Default() {
			t.Error("config changed without variables")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"suppression zero", func(c *Config) { c.Detection.SuppressionThreshold = 0 }},
		{"grouping above one", func(c *Config) { c.Detection.GroupingThreshold = 2 }},
		{"confirmation zero", func(c *Config) { c.Detection.ConfirmationTicks = 0 }},
		{"unknown policy", func(c *Config) { c.Detection.SingletonPolicy = "dealer" }},
		{"no sets", func(c *Config) { c.Shoe.Sets = 0 }},
		{"unknown source", func(c *Config) { c.Capture.Source = "phone" }},
		{"video without path", func(c *Config) { c.Capture.Source = "video" }},
		{"zero interval", func(c *Config) { c.Capture.InferenceIntervalMs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
