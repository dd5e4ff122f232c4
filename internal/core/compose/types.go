// Package compose contains pure functions for parsing Docker Compose files.
// This is part of the functional core - all functions are pure with no I/O
// beyond the YAML bytes handed in.
package compose

// =============================================================================
// Parsed Types
// =============================================================================

// ParsedFile is the subset of a compose file the stack manager needs:
// which services exist, what their containers are called, and which host
// ports they publish.
type ParsedFile struct {
	Services []Service
	Volumes  []Volume
}

// Service is one compose service.
type Service struct {
	Name           string
	ContainerName  string // container_name from the file, or "" if unset
	Image          string
	Ports          []Port
	DependsOn      []string
	HasHealthCheck bool
}

// Port is a published port mapping.
type Port struct {
	Target    uint32
	Published uint32
	Protocol  string
}

// Volume is a named top-level volume.
type Volume struct {
	Name     string
	External bool
}

// FindService returns the service with the given name, if present.
func (f *ParsedFile) FindService(name string) (Service, bool) {
	for _, svc := range f.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// ContainerNameFor returns the container name compose will assign to the
// service: the explicit container_name if set, else the conventional
// <project>-<service>-1.
func ContainerNameFor(project string, svc Service) string {
	if svc.ContainerName != "" {
		return svc.ContainerName
	}
	return project + "-" + svc.Name + "-1"
}
