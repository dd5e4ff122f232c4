package stack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_Empty(t *testing.T) {
	status := Aggregate(nil)
	assert.Equal(t, StateStopped, status.State)
}

func TestAggregate_AllRunning(t *testing.T) {
	status := Aggregate([]ServiceStatus{
		{Name: "inference", Container: ContainerStateRunning},
		{Name: "app", Container: ContainerStateRunning},
	})
	assert.Equal(t, StateRunning, status.State)
}

func TestAggregate_Partial(t *testing.T) {
	status := Aggregate([]ServiceStatus{
		{Name: "inference", Container: ContainerStateRunning},
		{Name: "app", Container: ContainerStateExited},
	})
	assert.Equal(t, StatePartial, status.State)
}

func TestAggregate_AllStopped(t *testing.T) {
	status := Aggregate([]ServiceStatus{
		{Name: "inference", Container: ContainerStateMissing},
		{Name: "app", Container: ContainerStateExited},
	})
	assert.Equal(t, StateStopped, status.State)
}

func TestDetermineHealth_NotRunning(t *testing.T) {
	assert.Equal(t, HealthStateUnknown, DetermineHealth(ContainerStateExited, nil))
	assert.Equal(t, HealthStateUnknown, DetermineHealth(ContainerStateMissing, nil))
}

func TestDetermineHealth_ProbeFailed(t *testing.T) {
	health := DetermineHealth(ContainerStateRunning, errors.New("connection refused"))
	assert.Equal(t, HealthStateStarting, health)
}

func TestDetermineHealth_Healthy(t *testing.T) {
	assert.Equal(t, HealthStateHealthy, DetermineHealth(ContainerStateRunning, nil))
}

func TestHealthFromDocker(t *testing.T) {
	cases := []struct {
		status string
		want   HealthState
		ok     bool
	}{
		{"healthy", HealthStateHealthy, true},
		{"starting", HealthStateStarting, true},
		{"unhealthy", HealthStateUnreachable, true},
		{"", HealthStateUnknown, false},
		{"none", HealthStateUnknown, false},
	}
	for _, tc := range cases {
		got, ok := HealthFromDocker(tc.status)
		assert.Equal(t, tc.want, got, tc.status)
		assert.Equal(t, tc.ok, ok, tc.status)
	}
}

func TestAccessURL(t *testing.T) {
	svc := ServiceSpec{Name: "app", Port: 8080}
	assert.Equal(t, "http://localhost:8080", svc.AccessURL())

	noPort := ServiceSpec{Name: "worker", HealthURL: "http://localhost:9090/health"}
	assert.Equal(t, "http://localhost:9090/health", noPort.AccessURL())
}
