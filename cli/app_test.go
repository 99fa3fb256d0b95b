package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gruntwork-io/solarboat/internal/errors"
)

func TestExitCodeMapsSentinelErrorsToCatalog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitSuccess, ExitCode(&errors.ErrNoModulesFound{Root: "."}))
	assert.Equal(t, ExitConfigError, ExitCode(&errors.ErrConfigParse{Path: "solarboat.json"}))
	assert.Equal(t, ExitEnvError, ExitCode(&errors.ErrNotAGitRepository{Dir: "."}))
	assert.Equal(t, ExitEnvError, ExitCode(&errors.ErrBinaryNotFound{Name: "git"}))
	assert.Equal(t, ExitInterrupted, ExitCode(errInterrupted))
	assert.Equal(t, ExitTaskFailure, ExitCode(errors.New("some other failure")))
}

func TestClampParallelBoundsToOneAndFour(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, clampParallel(0))
	assert.Equal(t, 1, clampParallel(-3))
	assert.Equal(t, 4, clampParallel(4))
	assert.Equal(t, 4, clampParallel(99))
	assert.Equal(t, 2, clampParallel(2))
}

func TestTailReturnsAtMostLastNLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb\nc", tail("a\nb\nc", 5))
	assert.Equal(t, "b\nc", tail("a\nb\nc", 2))
}

func TestNewAppRegistersThreeSubcommands(t *testing.T) {
	t.Parallel()

	app := NewApp()

	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}

	assert.True(t, names["scan"])
	assert.True(t, names["plan"])
	assert.True(t, names["apply"])
}
