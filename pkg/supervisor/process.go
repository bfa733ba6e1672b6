package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var sigTable = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
	"TERM": syscall.SIGTERM,
}

// launch 启动一次子进程并挂上收割协程
//
// 子进程放进独立进程组，终止时按组投递信号，把孙进程一并带走。
// extraEnv 叠加在当前进程环境之上，用于传递协商出来的端口。
func (sc *Sidecar) launch(spec *launchSpec, extraEnv []string) error {
	cmd := exec.Command(spec.path, spec.args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", spec.path, err)
	}

	sc.mu.Lock()
	sc.pid = cmd.Process.Pid
	sc.proc = cmd.Process
	sc.startAt = time.Now()
	sc.mu.Unlock()

	go sc.reap(cmd)

	return nil
}

// reap 等待子进程退出并清空描述符上的句柄
//
// 句柄只会被创建它的那次 launch 对应的收割清空，旧进程的退出
// 不会误清新进程的句柄。
func (sc *Sidecar) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	sc.mu.Lock()
	if sc.proc == cmd.Process {
		sc.proc = nil
		sc.pid = 0
	}
	sc.mu.Unlock()

	if err == nil {
		sc.logger.Infof("process %s exited normally", sc.Name)
		return
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		sc.logger.Error(err)
		return
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			sc.logger.Infof("process %s killed by signal %v", sc.Name, status.Signal())
		} else {
			sc.logger.Infof("process %s exited with code=%d", sc.Name, status.ExitStatus())
		}
	}
}

// Running 判断描述符当前是否持有存活的进程句柄
func (sc *Sidecar) Running() bool {
	sc.mu.Lock()
	proc := sc.proc
	sc.mu.Unlock()

	if proc == nil {
		return false
	}

	// 信号 0 只探测不投递
	return proc.Signal(syscall.Signal(0)) == nil
}

func (sc *Sidecar) stopSignal() syscall.Signal {
	if sig, ok := sigTable[strings.ToUpper(sc.StopSignal)]; ok {
		return sig
	}

	return syscall.SIGTERM
}

// terminate 强制终止当前句柄对应的进程组
//
// 先投递停止信号并等待收割协程清空句柄，超时后升级为 SIGKILL。
// 返回错误表示 SIGKILL 之后进程仍然存活。
func (sc *Sidecar) terminate() error {
	sc.mu.Lock()
	pid := sc.pid
	proc := sc.proc
	sc.mu.Unlock()

	if proc == nil {
		return nil
	}

	sc.logger.Infof("Sending %v to process %s (pid %d)", sc.stopSignal(), sc.Name, pid)

	if err := syscall.Kill(-pid, sc.stopSignal()); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		sc.logger.Error(err)
	}

	if sc.waitGone(3 * time.Second) {
		return nil
	}

	sc.logger.Warnf("Force kill process %s (pid %d)", sc.Name, pid)

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}

	if sc.waitGone(time.Second) {
		return nil
	}

	return fmt.Errorf("process %s (pid %d) still alive after SIGKILL", sc.Name, pid)
}

// waitGone 轮询等待收割协程清空句柄
func (sc *Sidecar) waitGone(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !sc.Running() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}

	return !sc.Running()
}

// runningByName 按可执行文件名判断系统里是否已有同名进程
//
// 这是跨实例的幂等性启发，不是正确性保证。Linux 上扫描 /proc 下
// 的 comm（内核截断为 15 字节），其他平台退化为 pgrep -x。僵尸
// 进程不算运行中，自身进程被跳过。
func runningByName(exe string) bool {
	if _, err := os.Stat("/proc"); err == nil {
		return scanProcByName(exe)
	}

	return exec.Command("pgrep", "-x", exe).Run() == nil
}

func scanProcByName(exe string) bool {
	comm := exe
	if len(comm) > 15 {
		comm = comm[:15]
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false
	}

	self := os.Getpid()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}

		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
		if err != nil {
			continue
		}

		if strings.TrimSpace(string(data)) != comm {
			continue
		}

		if isZombie(pid) {
			continue
		}

		return true
	}

	return false
}

func isZombie(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}

	// 内容形如 "pid (comm) S ..."，comm 可能含空格，从右括号后取状态位
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return false
	}

	return data[i+2] == 'Z'
}
