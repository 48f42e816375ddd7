package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/wppchat/internal/config"
)

func TestUpdateConfig(t *testing.T) {
	base := withBase(t)
	ctx := context.Background()

	err := UpdateConfig(ctx, func(cfg *config.Config) error {
		cfg.DefaultProfile = "work"
		cfg.SetProfile("work", config.Profile{UserID: "u1", Token: "t"})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = UpdateConfig(ctx, func(cfg *config.Config) error {
		cfg.SetProfile("home", config.Profile{UserID: "u2"})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(filepath.Join(base, "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultProfile != "work" || len(cfg.Profiles) != 2 || cfg.Profiles["work"].Token != "t" {
		t.Errorf("config = %+v", cfg)
	}
	if _, err := os.Stat(filepath.Join(base, "LOCK")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestUpdateConfigAbortsOnError(t *testing.T) {
	base := withBase(t)
	boom := errors.New("nope")

	err := UpdateConfig(context.Background(), func(cfg *config.Config) error {
		cfg.DefaultProfile = "x"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "config.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Error("config written despite error")
	}
}
