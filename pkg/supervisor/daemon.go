package supervisor

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnuos/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outrider/pkg/config"
	"outrider/pkg/journal"
	"outrider/pkg/utils"
	"outrider/pkg/utils/constants"
)

var daemonCtx *daemon.Context

// GetDaemon 返回守护进程上下文单例
func GetDaemon() *daemon.Context {
	if daemonCtx == nil {
		daemonCtx = &daemon.Context{
			PidFileName: config.GetConfig().PidFile,
			PidFilePerm: 0644,
			WorkDir:     constants.OutriderHome,
			Umask:       027,
			Args:        os.Args,
		}
	}

	return daemonCtx
}

// Daemon 以守护进程方式运行监督器
//
// 注意事项：
//  1. 前台模式（--foreground）直接在当前进程运行并自写 pid 文件，
//     否则 fork 出子进程，父进程打印子进程 PID 后立即返回
//  2. 事件日志在真正运行监督的进程里打开，父进程不碰存储
//  3. 停机统一走 utils.StopChan：系统信号和控制面的 shutdown
//     请求殊途同归
func (s *Supervisor) Daemon() {
	signal.Notify(utils.StopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	cfg := config.GetConfig()

	s.StartedAt = time.Now()

	if config.ForegroundFlag {
		if err := utils.WriteDaemonPid(cfg.PidFile, utils.SupervisorPid); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	} else {
		child, err := GetDaemon().Reborn()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		if child != nil {
			s.Pid = child.Pid
			fmt.Printf("Outrider supervisor daemon started with PID %d\n", child.Pid)
			return
		}
	}

	// 只有真正运行监督的进程负责清理自己的落盘痕迹
	defer func() {
		if config.ForegroundFlag {
			_ = os.Remove(cfg.PidFile)
		} else {
			_ = GetDaemon().Release()
		}
		_ = os.Remove(cfg.Socket)
	}()

	if s.opts.Journal == nil {
		j, err := journal.Open(cfg.JournalDir)
		if err != nil {
			s.logger.Errorf("event journal disabled: %v", err)
		} else {
			s.opts.Journal = j
		}
	}

	fmt.Printf("\033[1;33;40mOutrider supervisor started at %s\033[0m\n\n", s.StartedAt.Format(time.RFC3339))

	srv, err := NewCtlServer(s, cfg.Socket)
	if err != nil {
		s.logger.Error(err)
		return
	}
	go srv.Listen()

	if cfg.MetricsAddr != "" {
		go s.serveMetrics(cfg.MetricsAddr)
	}

	s.logger.Infof("Outrider supervisor is running with PID %d", utils.SupervisorPid)

	s.StartAll()

	sig := <-utils.StopChan

	s.logger.Infof("Got %v signal, supervisor will be stopped", sig)

	switch sig {
	case os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT:
		utils.FinishChan <- struct{}{}
		srv.Close()
		s.Shutdown()
	}

	// 先解除信号投递再关闭通道，窗口期到达的信号不能打到已关闭的通道上
	signal.Stop(utils.StopChan)
	close(utils.StopChan)

	s.logger.Info("Supervisor daemon stopped")
}

// Shutdown 停止全部监督、关闭事件日志并同步缓冲
func (s *Supervisor) Shutdown() {
	s.StopAll()

	_ = s.opts.Journal.Close()
	_ = s.logger.Sync()
}

func (s *Supervisor) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.logger.Infof("serving metrics on http://%s/metrics", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		s.logger.Error(err)
	}
}
