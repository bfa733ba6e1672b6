package supervisor

import (
	"errors"
	"os/exec"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outrider/pkg/codec"
)

func TestRegisterRejectsDuplicateName(t *testing.T) {
	sv := NewSupervisor(testOptions())

	require.True(t, sv.Register(NewSidecar("dup", "sidecars.dup.path", "", "")))
	assert.False(t, sv.Register(NewSidecar("dup", "sidecars.other.path", "", "")))

	assert.Equal(t, 1, sv.table.Len())

	sc, ok := sv.Sidecar("dup")
	require.True(t, ok)
	assert.Equal(t, "sidecars.dup.path", sc.PathKey)
}

func TestSubscribePortUnknownSidecar(t *testing.T) {
	sv := NewSupervisor(testOptions())

	assert.False(t, sv.SubscribePort("nobody", func(int) {}))
}

func TestBlankPathDisablesSidecar(t *testing.T) {
	opts := testOptions()
	sv := NewSupervisor(opts)

	blank := NewSidecar("blank", "sidecars.blank.path", "", "")
	missing := NewSidecar("missing", "sidecars.missing.path", "", "")
	require.True(t, sv.Register(blank))
	require.True(t, sv.Register(missing))

	opts.Env.Set("sidecars.blank.path", "   ")
	// sidecars.missing.path 故意不配置

	sv.StartAll()

	assert.Equal(t, codec.StateDisabled, blank.State())
	assert.Equal(t, codec.StateDisabled, missing.State())
	assert.False(t, blank.Running())

	sv.StopAll()
	sv.Wait()
}

func TestStartAllIsRejectedWhileRunning(t *testing.T) {
	opts := testOptions()
	opts.PollInterval = 10 * time.Second
	sv := NewSupervisor(opts)

	var calls atomic.Int32
	sc := NewSidecar("single", "sidecars.single.path", "", "")
	sc.PreStart = func() error {
		calls.Add(1)
		return errors.New("stop right here")
	}
	require.True(t, sv.Register(sc))

	opts.Env.Set("sidecars.single.path", "/bin/whatever")

	sv.StartAll()
	sv.StartAll()

	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load(), "second StartAll must not spawn another loop")

	// 循环还在 10s 休眠里，取消要到迭代边界才生效，这里不等它
	sv.StopAll()
}

func TestStopAllTerminatesManagedProcess(t *testing.T) {
	bin := copyExecutable(t, "sleep", "outrider-victim")

	opts := testOptions()
	sv := NewSupervisor(opts)

	sc := NewSidecar("victim", "sidecars.victim.path", "sidecars.victim.args", "")
	require.True(t, sv.Register(sc))

	opts.Env.Set("sidecars.victim.path", bin)
	opts.Env.Set("sidecars.victim.args", "60")

	sv.StartAll()

	require.Eventually(t, sc.Running, 3*time.Second, 20*time.Millisecond)
	pid := sc.Pid()
	require.Greater(t, pid, 0)

	sv.StopAll()
	sv.Wait()

	assert.False(t, sc.Running())
	assert.Error(t, syscall.Kill(pid, syscall.Signal(0)), "the OS process must be gone")
	assert.Equal(t, codec.StateStopped, sc.State())
}

func TestStopAllContinuesAfterFailedTermination(t *testing.T) {
	victimBin := copyExecutable(t, "sleep", "outrider-sweeper")
	zombieBin := copyExecutable(t, "sleep", "outrider-wedged")

	opts := testOptions()
	sv := NewSupervisor(opts)

	// 注册顺序就是终止扫描顺序，终止不掉的排在前面
	wedged := NewSidecar("wedged", "sidecars.wedged.path", "", "")
	victim := NewSidecar("victim", "sidecars.victim.path", "sidecars.victim.args", "")
	require.True(t, sv.Register(wedged))
	require.True(t, sv.Register(victim))

	opts.Env.Set("sidecars.victim.path", victimBin)
	opts.Env.Set("sidecars.victim.args", "60")

	sv.StartAll()

	require.Eventually(t, victim.Running, 3*time.Second, 20*time.Millisecond)
	victimPid := victim.Pid()
	require.Greater(t, victimPid, 0)

	// 未收割的僵尸对信号 0 仍然报存活，组信号投递也无事发生，
	// 对它的强制终止只能以错误收场
	zombie := exec.Command(zombieBin, "0")
	zombie.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, zombie.Start())
	defer func() {
		_ = zombie.Wait()
	}()

	require.Eventually(t, func() bool {
		return isZombie(zombie.Process.Pid)
	}, 3*time.Second, 20*time.Millisecond)

	wedged.mu.Lock()
	wedged.proc = zombie.Process
	wedged.pid = zombie.Process.Pid
	wedged.mu.Unlock()

	sv.StopAll()
	sv.Wait()

	assert.True(t, wedged.Running(), "the wedged handle survives its failed termination")
	assert.Error(t, syscall.Kill(victimPid, syscall.Signal(0)), "the descriptor after the failed one must still be terminated")
	assert.Equal(t, codec.StateStopped, victim.State())
}

func TestStopAllWithoutStartIsNoop(t *testing.T) {
	sv := NewSupervisor(testOptions())
	require.True(t, sv.Register(NewSidecar("calm", "sidecars.calm.path", "", "")))

	sv.StopAll()
	sv.StopAll()
	sv.Wait()
}

func TestLaunchSpecResolvedOnce(t *testing.T) {
	bin := copyExecutable(t, "sleep", "outrider-pinned")

	opts := testOptions()
	sv := NewSupervisor(opts)

	sc := NewSidecar("pinned", "sidecars.pinned.path", "sidecars.pinned.args", "")
	require.True(t, sv.Register(sc))

	opts.Env.Set("sidecars.pinned.path", bin)
	opts.Env.Set("sidecars.pinned.args", "0.2")

	sv.StartAll()
	defer func() {
		sv.StopAll()
	}()

	require.Eventually(t, func() bool {
		return sc.Info().Launches >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// StartAll 之后的配置变化不得影响已缓存的启动配置
	opts.Env.Set("sidecars.pinned.path", "/nonexistent/replacement")

	base := sc.Info().Launches
	require.Eventually(t, func() bool {
		return sc.Info().Launches >= base+1
	}, 10*time.Second, 20*time.Millisecond, "relaunches must keep using the path resolved at StartAll")

	assert.Equal(t, 0, sc.consecutiveFailures())
}

func TestSnapshotPreservesRegistrationOrder(t *testing.T) {
	sv := NewSupervisor(testOptions())

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.True(t, sv.Register(NewSidecar(name, "sidecars."+name+".path", "", "")))
	}

	infos := sv.Snapshot()
	require.Len(t, infos, 3)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}
