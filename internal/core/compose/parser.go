package compose

import (
	"context"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// Parse parses Docker Compose YAML into a ParsedFile.
// Input: raw YAML content. Output: ParsedFile struct or error.
func Parse(yamlContent string) (*ParsedFile, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadProject(yamlContent)
	if err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	parsed := &ParsedFile{
		Services: make([]Service, 0, len(project.Services)),
		Volumes:  make([]Volume, 0, len(project.Volumes)),
	}

	for _, svc := range project.Services {
		converted, err := convertService(svc)
		if err != nil {
			return nil, err
		}
		parsed.Services = append(parsed.Services, converted)
	}

	for name, vol := range project.Volumes {
		parsed.Volumes = append(parsed.Volumes, Volume{
			Name:     name,
			External: bool(vol.External),
		})
	}

	return parsed, nil
}

// loadProject loads a compose project using compose-go.
func loadProject(yamlContent string) (*types.Project, error) {
	// Parse YAML into a map first so syntax errors surface cleanly.
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("modelstack-parse", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory load: no path resolution, no external files.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	return project, nil
}

// convertService converts a compose-go service to our Service type.
func convertService(svc types.ServiceConfig) (Service, error) {
	service := Service{
		Name:          svc.Name,
		ContainerName: svc.ContainerName,
		Image:         svc.Image,
		DependsOn:     make([]string, 0),
	}

	for i, p := range svc.Ports {
		var published uint32
		if p.Published != "" {
			pub, err := strconv.ParseUint(p.Published, 10, 32)
			if err != nil {
				return Service{}, NewParseError(
					"services."+svc.Name+".ports["+strconv.Itoa(i)+"]",
					"published port must be numeric (port ranges are not supported)",
					ErrServiceInvalidPort,
				)
			}
			published = uint32(pub)
		}
		if p.Target == 0 || p.Target > 65535 || published > 65535 {
			return Service{}, NewParseError(
				"services."+svc.Name+".ports["+strconv.Itoa(i)+"]",
				"port out of range",
				ErrServiceInvalidPort,
			)
		}
		service.Ports = append(service.Ports, Port{
			Target:    p.Target,
			Published: published,
			Protocol:  p.Protocol,
		})
	}

	for dep := range svc.DependsOn {
		service.DependsOn = append(service.DependsOn, dep)
	}

	service.HasHealthCheck = svc.HealthCheck != nil && !svc.HealthCheck.Disable

	return service, nil
}
