package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeExec records invocations and returns canned results.
type fakeExec struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeExec) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func lookPathWith(available ...string) lookPathFunc {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func testRunner(variant Variant, fake *fakeExec) *Runner {
	r := NewRunner(variant, "docker-compose.yml", "modelstack", nil)
	r.run = fake.run
	return r
}

// =============================================================================
// Variant Detection Tests
// =============================================================================

func TestDetectVariant_PrefersStandalone(t *testing.T) {
	fake := &fakeExec{}
	variant, err := detectVariant(context.Background(), lookPathWith("docker-compose", "docker"), fake.run)

	require.NoError(t, err)
	assert.Equal(t, VariantStandalone, variant)
	// The plugin probe must not have run.
	assert.Empty(t, fake.calls)
}

func TestDetectVariant_FallsBackToPlugin(t *testing.T) {
	fake := &fakeExec{}
	variant, err := detectVariant(context.Background(), lookPathWith("docker"), fake.run)

	require.NoError(t, err)
	assert.Equal(t, VariantPlugin, variant)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"docker", "compose", "version"}, fake.calls[0])
}

func TestDetectVariant_PluginProbeFails(t *testing.T) {
	fake := &fakeExec{err: errors.New("unknown command: compose")}
	_, err := detectVariant(context.Background(), lookPathWith("docker"), fake.run)

	assert.ErrorIs(t, err, ErrComposeUnavailable)
}

func TestDetectVariant_NothingAvailable(t *testing.T) {
	fake := &fakeExec{}
	_, err := detectVariant(context.Background(), lookPathWith(), fake.run)

	assert.ErrorIs(t, err, ErrComposeUnavailable)
	assert.Empty(t, fake.calls)
}

// =============================================================================
// Command Construction Tests
// =============================================================================

func TestRunner_Up_Standalone(t *testing.T) {
	fake := &fakeExec{}
	r := testRunner(VariantStandalone, fake)

	require.NoError(t, r.Up(context.Background(), "inference"))
	require.Len(t, fake.calls, 1)
	assert.Equal(t,
		[]string{"docker-compose", "-f", "docker-compose.yml", "-p", "modelstack", "up", "-d", "--build", "inference"},
		fake.calls[0],
	)
}

func TestRunner_Up_Plugin(t *testing.T) {
	fake := &fakeExec{}
	r := testRunner(VariantPlugin, fake)

	require.NoError(t, r.Up(context.Background()))
	require.Len(t, fake.calls, 1)
	assert.Equal(t,
		[]string{"docker", "compose", "-f", "docker-compose.yml", "-p", "modelstack", "up", "-d", "--build"},
		fake.calls[0],
	)
}

func TestRunner_Down_RemoveVolumes(t *testing.T) {
	fake := &fakeExec{}
	r := testRunner(VariantStandalone, fake)

	require.NoError(t, r.Down(context.Background(), true))
	assert.Equal(t,
		[]string{"docker-compose", "-f", "docker-compose.yml", "-p", "modelstack", "down", "-v"},
		fake.calls[0],
	)
}

func TestRunner_Logs_DefaultTail(t *testing.T) {
	fake := &fakeExec{output: []byte("inference | listening\n")}
	r := testRunner(VariantStandalone, fake)

	out, err := r.Logs(context.Background(), 0, "inference")
	require.NoError(t, err)
	assert.Contains(t, out, "listening")
	assert.Contains(t, fake.calls[0], "--tail")
	assert.Contains(t, fake.calls[0], "100")
}

func TestRunner_CommandFailurePropagates(t *testing.T) {
	fake := &fakeExec{output: []byte("port is already allocated"), err: errors.New("exit status 1")}
	r := testRunner(VariantStandalone, fake)

	err := r.Up(context.Background(), "app")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "port is already allocated")
}
