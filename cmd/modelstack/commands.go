package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	corecompose "github.com/modelstack/modelstack/internal/core/compose"
	corestack "github.com/modelstack/modelstack/internal/core/stack"
	"github.com/modelstack/modelstack/internal/shell/compose"
	"github.com/modelstack/modelstack/internal/shell/docker"
	"github.com/modelstack/modelstack/internal/shell/health"
	"github.com/modelstack/modelstack/internal/shell/stack"
	"github.com/modelstack/modelstack/internal/shell/store"
)

// =============================================================================
// Application Wiring
// =============================================================================

// app bundles the wired dependencies for one command invocation.
type app struct {
	cfg     *Config
	logger  *slog.Logger
	docker  docker.Client
	store   store.Store // nil when the run-history database is unavailable
	manager *stack.Manager
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.docker != nil {
		a.docker.Close()
	}
}

// buildApp loads config and wires the stack manager. needCompose marks
// commands that issue compose commands; for those a missing compose variant
// or compose file is terminal.
func buildApp(ctx context.Context, configPath string, needCompose bool) (*app, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	logger := SetupLogger(cfg)

	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	services := cfg.ServiceSpecs()

	var runner stack.ComposeRunner
	variant, err := compose.DetectVariant(ctx)
	if err != nil {
		if needCompose {
			d.Close()
			return nil, fmt.Errorf("%w (install docker-compose or the docker compose plugin)", err)
		}
		// Observation-only commands work without a compose command.
		logger.Debug("no compose command found", "error", err)
	} else {
		runner = compose.NewRunner(variant, cfg.Compose.File, cfg.Compose.Project, logger)
	}

	if needCompose {
		if services, err = validateComposeFile(cfg, services); err != nil {
			d.Close()
			return nil, err
		}
	}

	// Run history is best-effort: a broken database never blocks the stack.
	var s store.Store
	if cfg.Store.DSN != "" {
		if err := stack.EnsureDataDirs([]string{filepath.Dir(cfg.Store.DSN)}); err != nil {
			logger.Warn("run history disabled", "dsn", cfg.Store.DSN, "error", err)
		} else if sqlStore, err := store.NewSQLiteStore(cfg.Store.DSN); err != nil {
			logger.Warn("run history disabled", "dsn", cfg.Store.DSN, "error", err)
		} else {
			s = sqlStore
		}
	}

	manager := stack.NewManager(stack.Options{
		Services: services,
		Project:  cfg.Compose.Project,
		DataDirs: cfg.DataDirs,
		Docker:   d,
		Compose:  runner,
		Health:   health.NewPoller(nil, logger),
		Store:    s,
		Logger:   logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		docker:  d,
		store:   s,
		manager: manager,
	}, nil
}

// validateComposeFile parses the compose file, checks every configured
// service exists in it, and fills in container names the config left empty.
func validateComposeFile(cfg *Config, services []corestack.ServiceSpec) ([]corestack.ServiceSpec, error) {
	content, err := os.ReadFile(cfg.Compose.File)
	if err != nil {
		return nil, fmt.Errorf("compose file %s: %w", cfg.Compose.File, err)
	}

	parsed, err := corecompose.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("compose file %s: %w", cfg.Compose.File, err)
	}

	for i, spec := range services {
		svc, ok := parsed.FindService(spec.Name)
		if !ok {
			return nil, fmt.Errorf("compose file %s does not define service %q", cfg.Compose.File, spec.Name)
		}
		if spec.ContainerName == "" {
			services[i].ContainerName = corecompose.ContainerNameFor(cfg.Compose.Project, svc)
		}
	}
	return services, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitFailure
}

// =============================================================================
// Commands
// =============================================================================

func runUp(args []string) int {
	fs := flag.NewFlagSet("up", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	wipe := fs.Bool("wipe", false, "Offer to delete data volumes before starting")
	yes := fs.Bool("yes", false, "Auto-approve prompts")
	nonInteractive := fs.Bool("non-interactive", false, "Never prompt; pending questions default to no")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, true)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.manager.Up(ctx, stack.UpOptions{
		Wipe:           *wipe,
		AutoApprove:    *yes,
		NonInteractive: *nonInteractive,
	}); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

func runDown(args []string) int {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, true)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.manager.Down(ctx); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

func runDestroy(args []string) int {
	fs := flag.NewFlagSet("destroy", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	volumes := fs.Bool("volumes", false, "Also remove data volumes (asks for confirmation)")
	yes := fs.Bool("yes", false, "Auto-approve prompts")
	nonInteractive := fs.Bool("non-interactive", false, "Never prompt; pending questions default to no")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, true)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.manager.Destroy(ctx, stack.DestroyOptions{
		RemoveVolumes:  *volumes,
		AutoApprove:    *yes,
		NonInteractive: *nonInteractive,
	}); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, false)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	status, err := a.manager.Status(ctx)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Stack: %s\n\n", status.State)
	for _, svc := range status.Services {
		fmt.Printf("  %-12s %-24s %-10s %s\n", svc.Name, svc.ContainerName, svc.Container, svc.Health)
	}

	if a.store != nil {
		if last, err := a.store.LastRun(ctx); err == nil {
			fmt.Printf("\nLast run: %s (%s) at %s\n",
				last.Command, last.Outcome, last.StartedAt.Local().Format("2006-01-02 15:04:05"))
		} else if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("failed to load last run", "error", err)
		}
	}
	return ExitSuccess
}

func runLogs(args []string) int {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	service := fs.String("service", "", "Service name (empty for all services)")
	tail := fs.Int("tail", 100, "Number of log lines per service")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, true)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.manager.Logs(ctx, *service, *tail); err != nil {
		return fail(err)
	}
	return ExitSuccess
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath, false)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := serveAPI(ctx, a); err != nil {
		return fail(err)
	}
	return ExitSuccess
}
