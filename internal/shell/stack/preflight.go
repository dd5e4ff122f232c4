package stack

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"

	"github.com/modelstack/modelstack/internal/shell/docker"
)

// =============================================================================
// Preflight Checks
// =============================================================================

// Preflight verifies the host environment before any container action.
type Preflight struct {
	lookPath func(name string) (string, error)
	listen   func(network, address string) (net.Listener, error)
	logger   *slog.Logger
}

// NewPreflight creates a preflight checker using the real host environment.
func NewPreflight(logger *slog.Logger) *Preflight {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preflight{
		lookPath: exec.LookPath,
		listen:   net.Listen,
		logger:   logger.With("component", "preflight"),
	}
}

// CheckDocker verifies the docker CLI resolves on PATH and the daemon
// answers a ping. Fails fast with ErrToolMissing; there is no retry.
func (p *Preflight) CheckDocker(ctx context.Context, cli docker.Client) error {
	if _, err := p.lookPath("docker"); err != nil {
		return NewStackError("Preflight", "",
			fmt.Errorf("%w: docker not found on PATH (install Docker from https://docs.docker.com/get-docker/)", ErrToolMissing))
	}

	if err := cli.Ping(ctx); err != nil {
		return NewStackError("Preflight", "",
			fmt.Errorf("%w: docker daemon is not reachable (is Docker running?): %v", ErrToolMissing, err))
	}

	return nil
}

// CheckPortsFree verifies each port can be bound, which means no foreign
// process owns it. Runs only for ports whose own service container is not
// already running; a running service legitimately holds its port.
func (p *Preflight) CheckPortsFree(ports []int) error {
	for _, port := range ports {
		ln, err := p.listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return NewStackError("Preflight", "",
				fmt.Errorf("%w: port %d (stop the conflicting process or change the service port)", ErrPortInUse, port))
		}
		ln.Close()
	}
	return nil
}

// EnsureDataDirs creates the configured working directories if absent.
func EnsureDataDirs(dirs []string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return NewStackError("EnsureDataDirs", "", fmt.Errorf("create %s: %w", dir, err))
		}
	}
	return nil
}
