package session

import (
	"context"
	"time"

	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/lock"
)

const configLockWait = 5 * time.Second

// UpdateConfig loads the global config, applies fn and saves the result,
// holding the config lock so concurrent logins do not overwrite each other.
func UpdateConfig(ctx context.Context, fn func(*config.Config) error) error {
	lk, err := lock.Wait(ctx, BaseDir(), configLockWait)
	if err != nil {
		return err
	}
	defer func() { _ = lk.Release() }()

	cfg, err := config.Load(ConfigPath())
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return config.Save(ConfigPath(), cfg)
}
