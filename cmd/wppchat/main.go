package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/wppchat/internal/app"
	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/session"
	"github.com/matheus3301/wppchat/internal/tui"
	"github.com/matheus3301/wppchat/internal/tui/model"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	noPush := flag.Bool("no-push", false, "do not open the push subscription")
	flag.Parse()

	name := session.Resolve(*profileFlag)
	if err := session.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	profile, err := loadProfile(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var s *app.Session
	application := fx.New(
		app.Module(app.Params{
			ProfileName:  name,
			Profile:      profile,
			ConsoleLevel: zapcore.FatalLevel,
			Push:         !*noPush,
		}),
		fx.Populate(&s),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: start session: %v\n", err)
		os.Exit(1)
	}

	runErr := tui.NewApp(model.NewViewModel(s)).Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := application.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: stop session: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func loadProfile(name string) (config.Profile, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		return config.Profile{}, err
	}
	p, ok := cfg.Profile(name)
	if !ok {
		return config.Profile{}, fmt.Errorf("profile %q not found; run wppchatctl login -profile %s", name, name)
	}
	if err := p.Validate(); err != nil {
		return config.Profile{}, fmt.Errorf("profile %q: %w", name, err)
	}
	return p, nil
}
