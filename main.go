package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ngenohkevin/unraid-templates/config"
	"github.com/ngenohkevin/unraid-templates/internal/logging"
	"github.com/ngenohkevin/unraid-templates/internal/pipeline"
	"github.com/ngenohkevin/unraid-templates/internal/runtime"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load configuration
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		config.Usage()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		config.Usage()
		return 2
	}

	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create runtime", "runtime", cfg.Runtime, "err", err)
		return 1
	}
	defer rt.Close()

	summary, err := pipeline.New(pipeline.OptionsFromConfig(cfg), rt, log).Run(ctx)
	if err != nil {
		return 1
	}

	summary.Print(os.Stdout)
	return 0
}

func newRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger) (runtime.Runtime, error) {
	if cfg.Runtime != config.RuntimeSDK {
		return runtime.NewCLI(cfg.DockerBinary), nil
	}

	sdk, err := runtime.NewSDK()
	if err != nil {
		return nil, err
	}
	if !sdk.IsAvailable(ctx) {
		log.Warn("Docker daemon is not reachable, container lists will be empty")
	}
	return sdk, nil
}
