package stack

// =============================================================================
// Reconciliation Plan (Pure Functions)
// =============================================================================

// Action is the startup action the reconciler decided for a service.
type Action string

const (
	// ActionNone means the container is already running; no command is issued.
	ActionNone Action = "none"
	// ActionUp means the service must be built and started.
	ActionUp Action = "up"
)

// PlannedAction pairs a service with the action required to satisfy its
// desired running state.
type PlannedAction struct {
	Service ServiceSpec
	Action  Action
	// Reason is a short human-readable explanation for the decision.
	Reason string
}

// Plan compares the desired services against the observed container states
// and returns one action per service, in the order the services were given.
// Order matters: the caller starts services sequentially and each gates the
// next. A service whose container is already running gets ActionNone; the
// startup command is never issued for it.
func Plan(services []ServiceSpec, observed map[string]ContainerState) []PlannedAction {
	plan := make([]PlannedAction, 0, len(services))

	for _, svc := range services {
		state, found := observed[svc.ContainerName]
		if !found {
			state = ContainerStateMissing
		}

		switch state {
		case ContainerStateRunning:
			plan = append(plan, PlannedAction{
				Service: svc,
				Action:  ActionNone,
				Reason:  "container already running",
			})
		case ContainerStateMissing:
			plan = append(plan, PlannedAction{
				Service: svc,
				Action:  ActionUp,
				Reason:  "container does not exist",
			})
		default:
			// Exists but is not running (exited, created, paused). Compose up
			// restarts it in place.
			plan = append(plan, PlannedAction{
				Service: svc,
				Action:  ActionUp,
				Reason:  "container is " + string(state),
			})
		}
	}

	return plan
}

// PortsToCheck returns the host ports that must be free before bring-up:
// ports of services that are not already running. A port owned by the
// service's own running container is not a conflict.
func PortsToCheck(plan []PlannedAction) []int {
	var ports []int
	for _, p := range plan {
		if p.Action == ActionNone {
			continue
		}
		if p.Service.Port > 0 {
			ports = append(ports, p.Service.Port)
		}
	}
	return ports
}
