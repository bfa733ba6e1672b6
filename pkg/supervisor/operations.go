package supervisor

import (
	"context"
	"path/filepath"
	"strings"

	"outrider/pkg/codec"
)

// StartAll 为每个配置了启动路径的描述符拉起保活循环
//
// 注意事项：
//  1. 监督已在运行时重复调用被拒绝，只打警告
//  2. 启动路径为空或缺失的描述符被禁用，不拉循环，只留 debug 日志
//  3. 路径和参数在此处解析一次并缓存，循环存续期间不再读配置面
//  4. 每个描述符的拉起都在独立的恢复边界内，单个异常不影响其余
//
// 没有错误返回值，个体失败只体现在日志、指标和事件里。
func (s *Supervisor) StartAll() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("StartAll called while supervision is already running, ignoring")
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	_ = s.opts.Journal.Record(&codec.Event{
		Kind:   codec.EventSupervisorStart,
		Pid:    s.Pid,
		Detail: s.RunID,
	})

	for _, sc := range s.table.All() {
		s.startOne(ctx, sc)
	}
}

// startOne 解析单个描述符的启动配置并拉起循环
func (s *Supervisor) startOne(ctx context.Context, sc *Sidecar) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("starting supervision for %s panicked: %v", sc.Name, r)
		}
	}()

	path := strings.TrimSpace(s.opts.Env.GetString(sc.PathKey))
	if path == "" {
		sc.setState(codec.StateDisabled)
		s.logger.Debugf("sidecar %s has no launch path configured, supervision disabled", sc.Name)
		return
	}

	spec := &launchSpec{
		exe:  filepath.Base(path),
		path: path,
	}
	if sc.ArgsKey != "" {
		spec.args = strings.Fields(s.opts.Env.GetString(sc.ArgsKey))
	}

	s.wg.Add(1)
	go s.keepAlive(ctx, sc, spec)

	s.logger.Infof("supervising %s (%s)", sc.Name, path)
}

// StopAll 停止全部监督并强制终止所有存活的托管进程
//
// 先广播取消，循环在下一个迭代边界退出，不打断休眠；随后立刻逐个
// 终止存活句柄，单个终止失败只记日志不阻塞其余。重复调用或没有
// 任何监督在跑时只产生日志。
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		s.logger.Info("StopAll called with no supervision running")
		return
	}

	if cancel != nil {
		cancel()
	}

	for _, sc := range s.table.All() {
		s.stopOne(sc)
	}

	_ = s.opts.Journal.Record(&codec.Event{
		Kind:   codec.EventSupervisorStop,
		Pid:    s.Pid,
		Detail: s.RunID,
	})
}

// stopOne 终止单个描述符的存活进程，恢复边界内执行
func (s *Supervisor) stopOne(sc *Sidecar) {
	defer func() {
		if r := recover(); r != nil {
			sc.logger.Errorf("terminating %s panicked: %v", sc.Name, r)
		}
	}()

	if !sc.Running() {
		return
	}

	pid := sc.Pid()

	if err := sc.terminate(); err != nil {
		sc.logger.Errorf("terminate %s: %v", sc.Name, err)
		return
	}

	setUpGauge(sc.Name, false)

	_ = s.opts.Journal.Record(&codec.Event{
		Kind:    codec.EventStop,
		Sidecar: sc.Name,
		Pid:     pid,
	})
}

// Wait 阻塞到所有保活循环退出
//
// 循环只会因 StopAll 或熔断退出，未调用 StopAll 且未全部熔断时
// 会一直阻塞。
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Snapshot 返回所有描述符的当前状态，注册顺序
func (s *Supervisor) Snapshot() []*codec.SidecarInfo {
	all := s.table.All()

	infos := make([]*codec.SidecarInfo, 0, len(all))
	for _, sc := range all {
		infos = append(infos, sc.Info())
	}

	return infos
}
