package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outrider/pkg/utils/constants"
)

func TestEnvNameMapping(t *testing.T) {
	env := NewEnv()

	assert.Equal(t, "OUTRIDER_SIDECARS_TRACE_AGENT_PORT", env.EnvName("sidecars.trace-agent.port"))
	assert.Equal(t, "OUTRIDER_SIDECARS_TRACE_AGENT_PORT=4317", env.PortEnv("sidecars.trace-agent.port", 4317))
}

func TestEnvSetOverridesDefault(t *testing.T) {
	env := NewEnv()

	env.SetDefault("sidecars.demo.path", "/usr/bin/demo")
	assert.Equal(t, "/usr/bin/demo", env.GetString("sidecars.demo.path"))

	env.Set("sidecars.demo.path", "/opt/demo")
	assert.Equal(t, "/opt/demo", env.GetString("sidecars.demo.path"))
}

func TestEnvVariableOverridesDefault(t *testing.T) {
	t.Setenv("OUTRIDER_SIDECARS_DEMO_ARGS", "--fast")

	env := NewEnv()
	env.SetDefault("sidecars.demo.args", "--slow")

	assert.Equal(t, "--fast", env.GetString("sidecars.demo.args"))
}

func TestEnvInstancesAreIsolated(t *testing.T) {
	one := NewEnv()
	two := NewEnv()

	one.Set("sidecars.demo.port", 4317)

	assert.Equal(t, 4317, one.GetInt("sidecars.demo.port"))
	assert.False(t, two.IsSet("sidecars.demo.port"))
}

func TestSetConfigAppliesDefaults(t *testing.T) {
	SetConfig("")

	cfg := GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, constants.DaemonPidFilePath, cfg.PidFile)
	assert.Equal(t, constants.DaemonSockFilePath, cfg.Socket)
	assert.Equal(t, constants.JournalDirPath, cfg.JournalDir)
	assert.Equal(t, constants.ManifestFilePath, cfg.Manifest)
	assert.True(t, cfg.Log.FileEnabled)
}
