// Package supervisor 实现伴生进程的监督核心
//
// 每个注册的描述符对应一条独立的保活循环：循环负责拉起进程、观察
// 启动结果、失败计数与熔断；进程退出由收割协程上报，循环在下一轮
// 迭代里补拉。端口协商作为预启动钩子挂在描述符上，协商结果通过
// 配置面、进程环境变量和同步订阅回调三条路径发布。
//
// Supervisor 本体只提供全量语义：StartAll 拉起所有循环，StopAll
// 广播取消并强制终止所有存活进程，不提供单个进程粒度的控制。
package supervisor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outrider/pkg/config"
	"outrider/pkg/logger"
	"outrider/pkg/utils"
)

// Supervisor 伴生进程监督器
//
// 并发安全。StartAll/StopAll 可以和控制面查询并发执行；重复的
// StartAll 会被拒绝，重复的 StopAll 是空操作。
type Supervisor struct {
	StartedAt time.Time
	Pid       int
	RunID     string

	mu      sync.Mutex
	started bool
	cancel  func()

	wg     sync.WaitGroup
	opts   *Options
	table  *SidecarTable
	logger *zap.SugaredLogger
}

// NewSupervisor 创建监督器
//
// 参数：
//
//	opts: 运行参数，nil 或零值字段自动取默认
//
// 返回：
//
//	未启动的监督器，需要 Register 描述符后调用 StartAll
func NewSupervisor(opts *Options) *Supervisor {
	return &Supervisor{
		StartedAt: time.Now(),
		Pid:       utils.SupervisorPid,
		RunID:     uuid.NewString(),
		opts:      opts.withDefaults(),
		table:     NewSidecarTable(),
		logger:    logger.Logging("supervisor"),
	}
}

// Env 返回监督器使用的配置面，宿主可在 StartAll 前写入启动配置
func (s *Supervisor) Env() *config.Env {
	return s.opts.Env
}

// Register 注册描述符
//
// PortKey 非空且描述符未自带预启动钩子时，注入标准端口协商钩子。
// 重名注册被拒绝并返回 false。
func (s *Supervisor) Register(sc *Sidecar) bool {
	if sc.PreStart == nil && sc.PortKey != "" {
		sc.PreStart = PortHook(sc, s.opts.Env)
	}

	if !s.table.Add(sc.Name, sc) {
		s.logger.Warnf("sidecar %s already registered", sc.Name)
		return false
	}

	s.logger.Debugf("registered sidecar %s", sc.Name)

	return true
}

// Sidecar 按名查找描述符
func (s *Supervisor) Sidecar(name string) (*Sidecar, bool) {
	return s.table.Get(name)
}

// SubscribePort 为指定描述符注册端口订阅
//
// 端口已知时在调用方 goroutine 上立刻同步回调一次，此后每次成功
// 启动都再次回调。返回 false 表示没有这个描述符。
func (s *Supervisor) SubscribePort(name string, fn PortCallback) bool {
	sc, ok := s.table.Get(name)
	if !ok {
		s.logger.Warnf("subscribe port for unknown sidecar %s", name)
		return false
	}

	sc.OnPort(fn)

	return true
}
