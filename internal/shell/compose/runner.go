// Package compose drives the host's Docker Compose command. Two invocation
// forms exist in the wild - the standalone docker-compose binary and the
// docker compose plugin - and this package resolves one of them once per run
// and uses it uniformly afterwards.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrComposeUnavailable means neither invocation form resolved on the host.
	ErrComposeUnavailable = errors.New("no docker compose command available")

	// ErrCommandFailed wraps a non-zero exit from the underlying command.
	ErrCommandFailed = errors.New("compose command failed")
)

// =============================================================================
// Variant Resolution
// =============================================================================

// Variant identifies which compose invocation form is in use.
type Variant string

const (
	// VariantStandalone is the docker-compose binary.
	VariantStandalone Variant = "docker-compose"
	// VariantPlugin is the docker compose plugin.
	VariantPlugin Variant = "docker compose"
)

// lookPathFunc resolves a binary on PATH. Injected for tests.
type lookPathFunc func(name string) (string, error)

// execFunc runs a command and returns its combined output. Injected for tests.
type execFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// DetectVariant probes the host for a compose command. The standalone binary
// is preferred when present; otherwise the docker plugin is probed with
// "docker compose version". Resolution happens once per run.
func DetectVariant(ctx context.Context) (Variant, error) {
	return detectVariant(ctx, exec.LookPath, defaultExec)
}

func detectVariant(ctx context.Context, lookPath lookPathFunc, run execFunc) (Variant, error) {
	if _, err := lookPath("docker-compose"); err == nil {
		return VariantStandalone, nil
	}

	if _, err := lookPath("docker"); err == nil {
		if _, err := run(ctx, "docker", "compose", "version"); err == nil {
			return VariantPlugin, nil
		}
	}

	return "", ErrComposeUnavailable
}

// =============================================================================
// Runner
// =============================================================================

// Runner issues compose commands for one project, using the variant chosen
// at construction for every invocation.
type Runner struct {
	variant Variant
	file    string
	project string
	run     execFunc
	logger  *slog.Logger
}

// NewRunner creates a runner bound to a compose file and project name.
func NewRunner(variant Variant, file, project string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		variant: variant,
		file:    file,
		project: project,
		run:     defaultExec,
		logger:  logger.With("component", "compose"),
	}
}

// Variant returns the invocation form this runner uses.
func (r *Runner) Variant() Variant {
	return r.variant
}

// argv builds the full command line for a compose subcommand.
func (r *Runner) argv(sub ...string) (string, []string) {
	var name string
	var args []string

	switch r.variant {
	case VariantPlugin:
		name = "docker"
		args = append(args, "compose")
	default:
		name = "docker-compose"
	}

	args = append(args, "-f", r.file, "-p", r.project)
	args = append(args, sub...)
	return name, args
}

// exec runs a compose subcommand and propagates any non-zero exit.
func (r *Runner) exec(ctx context.Context, sub ...string) ([]byte, error) {
	name, args := r.argv(sub...)
	r.logger.Debug("running compose command", "command", name, "args", args)

	out, err := r.run(ctx, name, args...)
	if err != nil {
		return out, fmt.Errorf("%w: %s %v: %v: %s", ErrCommandFailed, name, sub, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// Up builds and starts the named services in detached mode. With no services
// given, the whole file is brought up.
func (r *Runner) Up(ctx context.Context, services ...string) error {
	args := append([]string{"up", "-d", "--build"}, services...)
	_, err := r.exec(ctx, args...)
	return err
}

// Stop stops running containers without removing them.
func (r *Runner) Stop(ctx context.Context, services ...string) error {
	args := append([]string{"stop"}, services...)
	_, err := r.exec(ctx, args...)
	return err
}

// Down stops and removes containers and networks. With removeVolumes it also
// deletes the project's named volumes - the destructive data-wipe path.
func (r *Runner) Down(ctx context.Context, removeVolumes bool) error {
	args := []string{"down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	_, err := r.exec(ctx, args...)
	return err
}

// Logs returns a bounded log tail for the named services (all when empty).
// Never follows; the output is a diagnostic snapshot.
func (r *Runner) Logs(ctx context.Context, tail int, services ...string) (string, error) {
	if tail <= 0 {
		tail = 100
	}
	args := append([]string{"logs", "--no-color", "--tail", strconv.Itoa(tail)}, services...)
	out, err := r.exec(ctx, args...)
	return string(out), err
}
