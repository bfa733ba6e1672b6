package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outrider/pkg/codec"
	"outrider/pkg/config"
	"outrider/pkg/utils"
)

// TestDaemonForegroundLifecycle 前台模式下完整走一遍守护进程的
// 启动、服务和停机路径
func TestDaemonForegroundLifecycle(t *testing.T) {
	// 清掉可能残留的旧令牌
	select {
	case <-utils.StopChan:
	default:
	}

	home := t.TempDir()
	cfgFile := filepath.Join(home, "outrider.yml")
	content := fmt.Sprintf(`daemonize: false
pidfile: %s/outrider.pid
socket: %s/outrider.sock
journal_dir: %s/journal
log:
  file_enabled: false
`, home, home, home)
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	config.SetConfig(cfgFile)
	config.ForegroundFlag = true

	t.Cleanup(func() {
		config.ForegroundFlag = false
		// Daemon 退出时关闭 StopChan，换上新通道供后续测试使用
		utils.StopChan = make(chan os.Signal, 1)
		utils.FinishChan = make(chan struct{}, 1)
	})

	sv := NewSupervisor(testOptions())

	done := make(chan struct{})
	go func() {
		sv.Daemon()
		close(done)
	}()

	cfg := config.GetConfig()
	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Socket)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "control socket must come up")

	res, err := ClientRun(cfg.Socket, &codec.ActionMsg{Action: codec.ActionStatus})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Code)

	pid, err := utils.ReadPid(cfg.PidFile)
	require.NoError(t, err)
	assert.Equal(t, utils.SupervisorPid, pid, "foreground mode must record its own pid")

	utils.StopChan <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop after the termination signal")
	}

	_, err = os.Stat(cfg.Socket)
	assert.True(t, os.IsNotExist(err), "socket file must be removed on shutdown")
	_, err = os.Stat(cfg.PidFile)
	assert.True(t, os.IsNotExist(err), "pid file must be removed on shutdown")
}
