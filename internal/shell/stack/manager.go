package stack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	corestack "github.com/modelstack/modelstack/internal/core/stack"
	"github.com/modelstack/modelstack/internal/shell/compose"
	"github.com/modelstack/modelstack/internal/shell/docker"
	"github.com/modelstack/modelstack/internal/shell/health"
	"github.com/modelstack/modelstack/internal/shell/store"
)

// =============================================================================
// Dependency Interfaces
// =============================================================================

// ComposeRunner abstracts the compose command driver.
type ComposeRunner interface {
	Up(ctx context.Context, services ...string) error
	Stop(ctx context.Context, services ...string) error
	Down(ctx context.Context, removeVolumes bool) error
	Logs(ctx context.Context, tail int, services ...string) (string, error)
	Variant() compose.Variant
}

// ReadinessWaiter abstracts the health poller.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context, name, url string, timeout, interval time.Duration) (time.Duration, error)
	Probe(ctx context.Context, url string) error
}

// =============================================================================
// Manager
// =============================================================================

// Manager sequences stack lifecycle operations. Execution is strictly
// sequential: each step gates the next, and nothing is retried except the
// bounded readiness polling.
type Manager struct {
	services []corestack.ServiceSpec
	project  string
	dataDirs []string
	logTail  int

	docker    docker.Client
	compose   ComposeRunner
	health    ReadinessWaiter
	store     store.Store // may be nil; run recording is best-effort
	preflight *Preflight

	input  io.Reader
	output io.Writer
	logger *slog.Logger
}

// Options configures a Manager.
type Options struct {
	Services []corestack.ServiceSpec
	Project  string
	DataDirs []string
	// LogTail bounds diagnostic log dumps. Default: 50 lines.
	LogTail int

	Docker    docker.Client
	Compose   ComposeRunner
	Health    ReadinessWaiter
	Store     store.Store
	Preflight *Preflight

	// Input and Output drive the interactive prompt and run summary.
	// Defaults: os.Stdin, os.Stdout.
	Input  io.Reader
	Output io.Writer
	Logger *slog.Logger
}

// NewManager creates a stack manager.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		services:  opts.Services,
		project:   opts.Project,
		dataDirs:  opts.DataDirs,
		logTail:   opts.LogTail,
		docker:    opts.Docker,
		compose:   opts.Compose,
		health:    opts.Health,
		store:     opts.Store,
		preflight: opts.Preflight,
		input:     opts.Input,
		output:    opts.Output,
		logger:    logger.With("component", "stack"),
	}
	if m.preflight == nil {
		m.preflight = NewPreflight(logger)
	}
	if m.input == nil {
		m.input = os.Stdin
	}
	if m.output == nil {
		m.output = os.Stdout
	}
	if m.logTail <= 0 {
		m.logTail = 50
	}
	return m
}

// UpOptions configures the Up operation.
type UpOptions struct {
	// Wipe offers to delete the stack's data volumes before starting.
	Wipe bool
	// AutoApprove answers yes to prompts without asking.
	AutoApprove bool
	// NonInteractive never prompts; pending questions default to no.
	NonInteractive bool
}

// =============================================================================
// Up
// =============================================================================

// Up brings the stack to its desired running state: preflight, optional data
// wipe, reconciliation, compose up for services that need it, and readiness
// polling per service. Returns nil on the degraded path where only
// non-critical services missed their readiness deadline.
func (m *Manager) Up(ctx context.Context, opts UpOptions) error {
	startedAt := time.Now()
	run := &store.Run{Command: "up", StartedAt: startedAt}

	err := m.up(ctx, opts, run)

	run.FinishedAt = time.Now()
	if err != nil {
		run.Outcome = store.OutcomeFailed
	} else if run.Outcome == "" {
		run.Outcome = store.OutcomeSuccess
	}
	m.recordRun(ctx, run)

	return err
}

func (m *Manager) up(ctx context.Context, opts UpOptions, run *store.Run) error {
	// Preflight: tools first, before any container action.
	if err := m.preflight.CheckDocker(ctx, m.docker); err != nil {
		return err
	}

	// Optional destructive wipe, confirmed interactively and defaulting to no.
	if opts.Wipe {
		if m.confirmWipe(opts) {
			fmt.Fprintf(m.output, "Removing containers and data volumes...\n")
			if err := m.compose.Down(ctx, true); err != nil {
				return NewStackError("Up", "", err)
			}
		} else {
			fmt.Fprintf(m.output, "Keeping existing data.\n")
		}
	}

	if err := EnsureDataDirs(m.dataDirs); err != nil {
		return err
	}

	// Reconcile: observe what is already running and plan per-service actions.
	observed, err := m.observeContainers(ctx)
	if err != nil {
		return err
	}
	plan := corestack.Plan(m.services, observed)

	// Ports must be free for every service we are about to start.
	if err := m.preflight.CheckPortsFree(corestack.PortsToCheck(plan)); err != nil {
		return err
	}

	for _, planned := range plan {
		result, err := m.bringUpService(ctx, planned)
		run.Services = append(run.Services, result)
		if err != nil {
			return err
		}
		if !result.Ready {
			run.Outcome = store.OutcomeDegraded
		}
	}

	m.printSummary(run.StartedAt, run.Outcome)
	return nil
}

// bringUpService starts one service if needed and waits for its readiness.
// A readiness timeout on a critical service is terminal; on a non-critical
// one it downgrades to a warning and the run continues.
func (m *Manager) bringUpService(ctx context.Context, planned corestack.PlannedAction) (store.ServiceResult, error) {
	svc := planned.Service
	result := store.ServiceResult{Name: svc.Name, Action: string(planned.Action)}

	switch planned.Action {
	case corestack.ActionNone:
		fmt.Fprintf(m.output, "%s: already running\n", svc.Name)
	default:
		fmt.Fprintf(m.output, "%s: starting (%s)\n", svc.Name, planned.Reason)
		if err := m.compose.Up(ctx, svc.Name); err != nil {
			return result, NewStackError("Up", svc.Name, err)
		}
	}

	took, err := m.health.WaitReady(ctx, svc.Name, svc.HealthURL, svc.HealthTimeout, svc.HealthInterval)
	if err != nil {
		if !errors.Is(err, health.ErrReadinessTimeout) {
			return result, NewStackError("Up", svc.Name, err)
		}
		m.dumpServiceLogs(ctx, svc.Name)
		if svc.Critical {
			return result, NewStackError("Up", svc.Name, err)
		}
		fmt.Fprintf(m.output, "Warning: %s is not ready yet; it may still be initializing. Check it at %s\n",
			svc.Name, svc.AccessURL())
		return result, nil
	}

	result.Ready = true
	result.ReadyIn = took
	fmt.Fprintf(m.output, "%s: ready in %s\n", svc.Name, took.Round(time.Millisecond))
	return result, nil
}

// =============================================================================
// Down / Destroy
// =============================================================================

// Down stops the stack's containers without removing them.
func (m *Manager) Down(ctx context.Context) error {
	run := &store.Run{Command: "down", StartedAt: time.Now()}

	err := m.compose.Stop(ctx)

	run.FinishedAt = time.Now()
	run.Outcome = store.OutcomeSuccess
	if err != nil {
		run.Outcome = store.OutcomeFailed
		m.recordRun(ctx, run)
		return NewStackError("Down", "", err)
	}
	m.recordRun(ctx, run)

	fmt.Fprintf(m.output, "Stack stopped.\n")
	return nil
}

// DestroyOptions configures the Destroy operation.
type DestroyOptions struct {
	RemoveVolumes  bool
	AutoApprove    bool
	NonInteractive bool
}

// Destroy stops and removes containers; with RemoveVolumes it also deletes
// the data volumes after confirmation.
func (m *Manager) Destroy(ctx context.Context, opts DestroyOptions) error {
	removeVolumes := opts.RemoveVolumes
	if removeVolumes && !opts.AutoApprove {
		if opts.NonInteractive || !m.confirm("Delete ALL stack data volumes? This cannot be undone") {
			fmt.Fprintf(m.output, "Keeping data volumes.\n")
			removeVolumes = false
		}
	}

	run := &store.Run{Command: "destroy", StartedAt: time.Now()}
	err := m.compose.Down(ctx, removeVolumes)
	run.FinishedAt = time.Now()
	run.Outcome = store.OutcomeSuccess
	if err != nil {
		run.Outcome = store.OutcomeFailed
		m.recordRun(ctx, run)
		return NewStackError("Destroy", "", err)
	}
	m.recordRun(ctx, run)

	fmt.Fprintf(m.output, "Stack removed.\n")
	return nil
}

// =============================================================================
// Status / Logs
// =============================================================================

// Status reports the observed state of every service: container state plus a
// single health probe for running containers.
func (m *Manager) Status(ctx context.Context) (*corestack.StackStatus, error) {
	observed, err := m.observeContainers(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]corestack.ServiceStatus, 0, len(m.services))
	for _, svc := range m.services {
		state, found := observed[svc.ContainerName]
		if !found {
			state = corestack.ContainerStateMissing
		}

		healthState := corestack.HealthStateUnknown
		if state == corestack.ContainerStateRunning {
			// The daemon's own healthcheck verdict wins; services without
			// one get a single HTTP probe.
			if hs, ok := m.inspectHealth(ctx, svc.ContainerName); ok {
				healthState = hs
			} else {
				healthState = corestack.DetermineHealth(state, m.health.Probe(ctx, svc.HealthURL))
			}
		}

		statuses = append(statuses, corestack.ServiceStatus{
			Name:          svc.Name,
			ContainerName: svc.ContainerName,
			Container:     state,
			Health:        healthState,
			Port:          svc.Port,
		})
	}

	status := corestack.Aggregate(statuses)
	return &status, nil
}

// Logs writes a bounded log tail for one service (or all when empty).
func (m *Manager) Logs(ctx context.Context, service string, tail int) error {
	var services []string
	if service != "" {
		if !m.hasService(service) {
			return NewStackError("Logs", service, fmt.Errorf("unknown service (have: %s)", strings.Join(m.serviceNames(), ", ")))
		}
		services = append(services, service)
	}

	out, err := m.compose.Logs(ctx, tail, services...)
	if err != nil {
		return NewStackError("Logs", service, err)
	}
	fmt.Fprint(m.output, out)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// observeContainers maps container names to observed states for this
// compose project. Containers are matched by name first, then by their
// compose service label, so a conventionally-named container
// (<project>-<service>-1) still reconciles against an explicit spec name.
func (m *Manager) observeContainers(ctx context.Context) (map[string]corestack.ContainerState, error) {
	containers, err := m.docker.ListContainers(ctx, docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": docker.LabelComposeProject + "=" + m.project,
		},
	})
	if err != nil {
		return nil, NewStackError("Observe", "", err)
	}

	observed := make(map[string]corestack.ContainerState, len(containers))
	for _, c := range containers {
		observed[c.Name] = corestack.ContainerState(c.State)
	}
	for _, c := range containers {
		svcName := c.Labels[docker.LabelComposeService]
		if svcName == "" {
			continue
		}
		for _, spec := range m.services {
			if spec.Name != svcName {
				continue
			}
			if _, seen := observed[spec.ContainerName]; !seen {
				observed[spec.ContainerName] = corestack.ContainerState(c.State)
			}
		}
	}
	return observed, nil
}

// inspectHealth returns the daemon-reported healthcheck state for a
// container; false when the container has no healthcheck or inspection fails.
func (m *Manager) inspectHealth(ctx context.Context, containerName string) (corestack.HealthState, bool) {
	info, err := m.docker.InspectContainer(ctx, containerName)
	if err != nil {
		m.logger.Debug("container inspect failed", "container", containerName, "error", err)
		return corestack.HealthStateUnknown, false
	}
	return corestack.HealthFromDocker(info.Health)
}

// dumpServiceLogs prints a diagnostic log tail after a readiness timeout.
// Compose is the primary source; when it cannot produce logs the container
// is read directly through the daemon.
func (m *Manager) dumpServiceLogs(ctx context.Context, service string) {
	out, err := m.compose.Logs(ctx, m.logTail, service)
	if err != nil {
		m.logger.Warn("compose log dump failed, reading container directly", "service", service, "error", err)
		out, err = m.containerLogs(ctx, service)
		if err != nil {
			m.logger.Warn("failed to collect diagnostic logs", "service", service, "error", err)
			return
		}
	}
	fmt.Fprintf(m.output, "--- recent logs for %s ---\n%s--- end logs ---\n", service, out)
}

// containerLogs fetches a bounded log tail for a service straight from the
// daemon, bypassing the compose command.
func (m *Manager) containerLogs(ctx context.Context, service string) (string, error) {
	for _, spec := range m.services {
		if spec.Name == service {
			return m.docker.ContainerLogs(ctx, spec.ContainerName, docker.LogOptions{
				Tail: strconv.Itoa(m.logTail),
			})
		}
	}
	return "", fmt.Errorf("unknown service %q", service)
}

// confirmWipe asks the operator before deleting data. Defaults to no.
func (m *Manager) confirmWipe(opts UpOptions) bool {
	if opts.AutoApprove {
		return true
	}
	if opts.NonInteractive {
		return false
	}
	return m.confirm("Delete ALL existing stack data? This cannot be undone")
}

// confirm prints a yes/no question and reads one line. Anything but an
// explicit yes counts as no.
func (m *Manager) confirm(question string) bool {
	fmt.Fprintf(m.output, "%s [y/N]: ", question)
	scanner := bufio.NewScanner(m.input)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// printSummary prints the access URLs after a completed run.
func (m *Manager) printSummary(startedAt time.Time, outcome string) {
	fmt.Fprintf(m.output, "\nStack is up (took %s)\n", time.Since(startedAt).Round(time.Millisecond))
	if outcome == store.OutcomeDegraded {
		fmt.Fprintf(m.output, "Some services are still initializing; they may take a little longer.\n")
	}
	fmt.Fprintf(m.output, "\nAccess points:\n")
	for _, svc := range m.services {
		fmt.Fprintf(m.output, "  %-12s %s\n", svc.Name+":", svc.AccessURL())
	}
}

// recordRun persists run history. Failures are warnings, never fatal.
func (m *Manager) recordRun(ctx context.Context, run *store.Run) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordRun(ctx, run); err != nil {
		m.logger.Warn("failed to record run", "command", run.Command, "error", err)
	}
}

func (m *Manager) hasService(name string) bool {
	for _, svc := range m.services {
		if svc.Name == name {
			return true
		}
	}
	return false
}

func (m *Manager) serviceNames() []string {
	names := make([]string, 0, len(m.services))
	for _, svc := range m.services {
		names = append(names, svc.Name)
	}
	return names
}
