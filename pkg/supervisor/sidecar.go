package supervisor

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"outrider/pkg/codec"
	"outrider/pkg/config"
	"outrider/pkg/logger"
	"outrider/pkg/ports"
)

// Hook 每次启动尝试前执行的动作，返回错误视为一次启动失败
type Hook func() error

// PortCallback 端口订阅回调，参数是最近一次协商出来的端口
type PortCallback func(port int)

// Sidecar 一个被监督的伴生进程的描述符
//
// 描述符注册后终生存在，不支持注销。同一个描述符最多持有一个
// 存活的进程句柄，句柄由保活循环创建、由收割协程清空。
//
// 字段说明：
//
//	Name: 描述符名，也是日志/指标/事件里的标识
//	PathKey: 配置面里可执行文件路径的键，解析结果为空则禁用监督
//	ArgsKey: 配置面里启动参数的键，值按空白切分
//	PortKey: 配置面里发布端口的键，为空表示不做端口协商
//	PreStart: 预启动钩子；注册时未设置且 PortKey 非空的话，由
//	  Supervisor 注入标准端口协商钩子
//	StopSignal: 终止时先行投递的信号名，空值等效 TERM
type Sidecar struct {
	Name    string
	PathKey string
	ArgsKey string
	PortKey string

	PreStart   Hook
	StopSignal string

	mu          sync.Mutex
	state       codec.SidecarState
	port        int
	portKnown   bool
	pid         int
	proc        *os.Process
	startAt     time.Time
	failures    int
	launches    uint64
	subscribers []PortCallback

	logger *zap.SugaredLogger
}

// NewSidecar 创建描述符，初始状态 Idle
func NewSidecar(name, pathKey, argsKey, portKey string) *Sidecar {
	return &Sidecar{
		Name:    name,
		PathKey: pathKey,
		ArgsKey: argsKey,
		PortKey: portKey,
		state:   codec.StateIdle,
		logger:  logger.Logging("sidecar::" + name),
	}
}

// PortHook 标准预启动钩子
//
// 每次启动尝试前申请一个临时 TCP 端口，先写入配置面和描述符，
// 再由后续的成功分类触发订阅通知。端口只会被新值替换，不会清空。
func PortHook(sc *Sidecar, env *config.Env) Hook {
	return func() error {
		port, err := ports.Allocate()
		if err != nil {
			return err
		}

		env.Set(sc.PortKey, port)
		sc.setPort(port)

		sc.logger.Debugf("negotiated port %d for %s", port, sc.Name)

		return nil
	}
}

// Port 返回最近协商的端口，尚未协商过时第二个返回值为 false
func (sc *Sidecar) Port() (int, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.port, sc.portKnown
}

// Pid 返回最近一次启动的进程号，从未启动过时为 0
func (sc *Sidecar) Pid() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.pid
}

// State 返回描述符当前的监督状态
func (sc *Sidecar) State() codec.SidecarState {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.state
}

// OnPort 注册端口订阅回调
//
// 端口已知时在调用方 goroutine 上立刻同步回调一次；之后每次成功
// 启动都按注册顺序再次回调。回调永不注销，panic 会被隔离。
func (sc *Sidecar) OnPort(fn PortCallback) {
	sc.mu.Lock()
	sc.subscribers = append(sc.subscribers, fn)
	port, known := sc.port, sc.portKnown
	sc.mu.Unlock()

	if known {
		sc.invoke(fn, port)
		recordPortNotify(sc.Name, 1)
	}
}

// Info 返回描述符状态的一致性快照，供控制面查询使用
func (sc *Sidecar) Info() *codec.SidecarInfo {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return &codec.SidecarInfo{
		Name:     sc.Name,
		State:    sc.state,
		Pid:      sc.pid,
		Port:     sc.port,
		Failures: sc.failures,
		Launches: sc.launches,
		StartAt:  sc.startAt,
	}
}

func (sc *Sidecar) setState(state codec.SidecarState) {
	sc.mu.Lock()
	sc.state = state
	sc.mu.Unlock()
}

func (sc *Sidecar) setPort(port int) {
	sc.mu.Lock()
	sc.port = port
	sc.portKnown = true
	sc.mu.Unlock()

	setPortGauge(sc.Name, port)
}

func (sc *Sidecar) consecutiveFailures() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.failures
}

// markFailure 累加连续失败计数并返回新值
func (sc *Sidecar) markFailure() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.failures++

	return sc.failures
}

// markSuccess 清零连续失败计数并累加成功启动次数
func (sc *Sidecar) markSuccess() {
	sc.mu.Lock()
	sc.failures = 0
	sc.launches++
	sc.mu.Unlock()
}

// notifySubscribers 按注册顺序同步通知所有订阅者当前端口
//
// 通知前端口必然已经写入描述符。回调在快照上执行，期间不持锁，
// 订阅者可以安全地再次调用描述符方法。
func (sc *Sidecar) notifySubscribers() {
	sc.mu.Lock()
	port, known := sc.port, sc.portKnown
	subs := make([]PortCallback, len(sc.subscribers))
	copy(subs, sc.subscribers)
	sc.mu.Unlock()

	if !known || len(subs) == 0 {
		return
	}

	for _, fn := range subs {
		sc.invoke(fn, port)
	}

	recordPortNotify(sc.Name, len(subs))
}

// invoke 隔离执行单个订阅回调，回调 panic 不影响循环和其他订阅者
func (sc *Sidecar) invoke(fn PortCallback, port int) {
	defer func() {
		if r := recover(); r != nil {
			sc.logger.Errorf("port subscriber for %s panicked: %v", sc.Name, r)
		}
	}()

	fn(port)
}
