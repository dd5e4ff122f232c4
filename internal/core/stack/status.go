package stack

// =============================================================================
// Status Aggregation (Pure Functions)
// =============================================================================

// Stack-level states reported by Aggregate.
const (
	StateRunning = "running"
	StatePartial = "partial"
	StateStopped = "stopped"
)

// Aggregate determines the overall stack state from per-service statuses.
func Aggregate(services []ServiceStatus) StackStatus {
	status := StackStatus{Services: services}

	if len(services) == 0 {
		status.State = StateStopped
		return status
	}

	running := 0
	for _, s := range services {
		if s.Container == ContainerStateRunning {
			running++
		}
	}

	switch running {
	case 0:
		status.State = StateStopped
	case len(services):
		status.State = StateRunning
	default:
		status.State = StatePartial
	}

	return status
}

// DetermineHealth maps a container state and a probe outcome to a health
// state. probeErr is the error from a single HTTP probe (nil means a 2xx
// response was received).
func DetermineHealth(container ContainerState, probeErr error) HealthState {
	if container != ContainerStateRunning {
		return HealthStateUnknown
	}
	if probeErr != nil {
		return HealthStateStarting
	}
	return HealthStateHealthy
}

// HealthFromDocker maps the daemon's healthcheck status to a health state.
// The second return is false when the container carries no healthcheck and
// the caller should probe over HTTP instead.
func HealthFromDocker(status string) (HealthState, bool) {
	switch status {
	case "healthy":
		return HealthStateHealthy, true
	case "starting":
		return HealthStateStarting, true
	case "unhealthy":
		return HealthStateUnreachable, true
	default:
		return HealthStateUnknown, false
	}
}
