package supervisor

import (
	"context"
	"fmt"
	"time"

	"outrider/pkg/codec"
)

// launchSpec 启动配置在 StartAll 时解析一次，循环存续期间不再刷新，
// 同一个循环里的重启不会观察到外部配置变化
type launchSpec struct {
	exe  string
	path string
	args []string
}

// keepAlive 单个描述符的保活循环
//
// 状态机：Idle → Launching → Verifying → Sleeping → (Stopped | CircuitOpen)
//
// 注意事项：
//  1. 取消只在迭代边界处生效，不打断休眠，停止延迟上限是 PollInterval
//  2. 每轮迭代后无条件休眠，成功与失败的节奏一致
//  3. 休眠后检查熔断阈值，熔断即永久退出，重置只能靠重启 Supervisor
func (s *Supervisor) keepAlive(ctx context.Context, sc *Sidecar, spec *launchSpec) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// 本轮迭代可能在 StopAll 的终止扫描之后又拉起了进程，
			// 退出前补杀，保证没有进程比监督活得久
			if sc.Running() {
				if err := sc.terminate(); err != nil {
					sc.logger.Errorf("terminate %s on loop exit: %v", sc.Name, err)
				}
			}

			sc.setState(codec.StateStopped)
			setUpGauge(sc.Name, false)
			sc.logger.Infof("keep-alive loop for %s stopped", sc.Name)
			return
		default:
		}

		s.superviseOnce(sc, spec)

		time.Sleep(s.opts.PollInterval)

		if sc.consecutiveFailures() >= s.opts.FailureLimit {
			sc.setState(codec.StateCircuitOpen)
			setUpGauge(sc.Name, false)
			recordCircuitTrip(sc.Name)

			sc.logger.Errorf("circuit breaker open for %s after %d consecutive launch failures, giving up",
				sc.Name, s.opts.FailureLimit)

			_ = s.opts.Journal.Record(&codec.Event{
				Kind:    codec.EventCircuitOpen,
				Sidecar: sc.Name,
				Detail:  fmt.Sprintf("%d consecutive launch failures", s.opts.FailureLimit),
			})

			return
		}
	}
}

// superviseOnce 执行一轮保活迭代
//
// 迭代里任何未处理的错误（包括 panic）都在本层兜住并折算成一次
// 启动失败，保证循环本体不会因为单轮异常而死亡。
func (s *Supervisor) superviseOnce(sc *Sidecar, spec *launchSpec) {
	defer func() {
		if r := recover(); r != nil {
			count := sc.markFailure()
			recordLaunchFailure(sc.Name)
			sc.logger.Errorf("supervision iteration for %s panicked (failure %d): %v", sc.Name, count, r)
			sc.setState(codec.StateSleeping)
		}
	}()

	if sc.Running() {
		sc.setState(codec.StateSleeping)
		return
	}

	if runningByName(spec.exe) {
		sc.logger.Debugf("%s already running outside supervision, skip launch", spec.exe)
		sc.setState(codec.StateSleeping)
		return
	}

	sc.setState(codec.StateLaunching)

	if err := s.launchOnce(sc, spec); err != nil {
		s.launchFailed(sc, err)
		sc.setState(codec.StateSleeping)
		return
	}

	sc.setState(codec.StateVerifying)

	time.Sleep(s.opts.SettleDelay)

	if !sc.Running() {
		s.launchFailed(sc, fmt.Errorf("process %s exited within %s settle window", spec.exe, s.opts.SettleDelay))
		sc.setState(codec.StateSleeping)
		return
	}

	s.launchSucceeded(sc)
	sc.setState(codec.StateSleeping)
}

func (s *Supervisor) launchOnce(sc *Sidecar, spec *launchSpec) error {
	if sc.PreStart != nil {
		if err := sc.PreStart(); err != nil {
			return fmt.Errorf("pre-start hook: %w", err)
		}
	}

	var extraEnv []string
	if sc.PortKey != "" {
		if port, ok := sc.Port(); ok {
			extraEnv = append(extraEnv, s.opts.Env.PortEnv(sc.PortKey, port))
		}
	}

	return sc.launch(spec, extraEnv)
}

func (s *Supervisor) launchFailed(sc *Sidecar, err error) {
	count := sc.markFailure()
	recordLaunchFailure(sc.Name)
	setUpGauge(sc.Name, false)

	sc.logger.Errorf("launch %s failed (consecutive failure %d/%d): %v",
		sc.Name, count, s.opts.FailureLimit, err)

	_ = s.opts.Journal.Record(&codec.Event{
		Kind:    codec.EventLaunchFailed,
		Sidecar: sc.Name,
		Detail:  err.Error(),
	})
}

func (s *Supervisor) launchSucceeded(sc *Sidecar) {
	sc.markSuccess()
	recordLaunch(sc.Name)
	setUpGauge(sc.Name, true)

	pid := sc.Pid()
	port, _ := sc.Port()

	sc.logger.Infof("process %s is started with PID %d", sc.Name, pid)

	// 端口先于通知写入描述符，订阅者按注册顺序同步收到当前值
	sc.notifySubscribers()

	_ = s.opts.Journal.Record(&codec.Event{
		Kind:    codec.EventLaunch,
		Sidecar: sc.Name,
		Pid:     pid,
		Port:    port,
	})
}
