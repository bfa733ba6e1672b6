package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outrider/pkg/codec"
	"outrider/pkg/config"
)

func TestOnPortBeforeFirstNegotiation(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")

	var got []int
	sc.OnPort(func(port int) { got = append(got, port) })

	assert.Empty(t, got, "no callback until a port is negotiated")

	sc.setPort(4317)
	sc.notifySubscribers()

	assert.Equal(t, []int{4317}, got)
}

func TestOnPortLateSubscriberGetsCurrentPort(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")
	sc.setPort(9000)

	var got int
	sc.OnPort(func(port int) { got = port })

	assert.Equal(t, 9000, got, "late subscriber must be called synchronously")
}

func TestNotifyKeepsOrderAndIsolatesPanics(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")

	var order []string
	sc.OnPort(func(int) { order = append(order, "first") })
	sc.OnPort(func(int) { panic("boom") })
	sc.OnPort(func(int) { order = append(order, "third") })

	sc.setPort(1234)
	sc.notifySubscribers()

	assert.Equal(t, []string{"first", "third"}, order, "panicking subscriber must not break the rest")
}

func TestNotifyRepeatsOnEverySuccess(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")

	var got []int
	sc.OnPort(func(port int) { got = append(got, port) })

	sc.setPort(1111)
	sc.notifySubscribers()
	sc.setPort(2222)
	sc.notifySubscribers()

	assert.Equal(t, []int{1111, 2222}, got)
}

func TestPortReplacedNeverCleared(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")

	_, known := sc.Port()
	assert.False(t, known)

	sc.setPort(1111)
	sc.setPort(2222)

	port, known := sc.Port()
	require.True(t, known)
	assert.Equal(t, 2222, port)
}

func TestPortHookPublishesToConfigSurface(t *testing.T) {
	env := config.NewEnv()
	sc := NewSidecar("demo", "sidecars.demo.path", "", "sidecars.demo.port")

	hook := PortHook(sc, env)
	require.NoError(t, hook())

	port, known := sc.Port()
	require.True(t, known)
	assert.Greater(t, port, 0)
	assert.Equal(t, port, env.GetInt("sidecars.demo.port"))
}

func TestFailureCounterLifecycle(t *testing.T) {
	sc := NewSidecar("demo", "sidecars.demo.path", "", "")

	assert.Equal(t, 1, sc.markFailure())
	assert.Equal(t, 2, sc.markFailure())

	sc.markSuccess()
	assert.Equal(t, 0, sc.consecutiveFailures())

	info := sc.Info()
	assert.Equal(t, uint64(1), info.Launches)
	assert.Equal(t, codec.StateIdle, info.State)
}
