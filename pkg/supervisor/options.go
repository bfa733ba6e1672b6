package supervisor

import (
	"time"

	"outrider/pkg/config"
	"outrider/pkg/journal"
)

const (
	// DefaultSettleDelay 启动后观察子进程是否立刻崩溃的固定等待
	DefaultSettleDelay = 200 * time.Millisecond

	// DefaultPollInterval 保活循环两次迭代之间的固定休眠
	DefaultPollInterval = 20 * time.Second

	// DefaultFailureLimit 连续启动失败达到该次数后熔断
	DefaultFailureLimit = 3
)

// Options 控制 Supervisor 的运行参数
//
// 字段说明：
//
//	Env: 外部配置面，读启动路径/参数、回写端口；nil 时自动创建独立实例
//	Journal: 事件日志；nil 时不记录（守护进程模式下由 Daemon 打开）
//	SettleDelay: 零值取 DefaultSettleDelay
//	PollInterval: 零值取 DefaultPollInterval
//	FailureLimit: 熔断阈值，零值取 DefaultFailureLimit
type Options struct {
	Env     *config.Env
	Journal *journal.Journal

	SettleDelay  time.Duration
	PollInterval time.Duration
	FailureLimit int
}

func (o *Options) withDefaults() *Options {
	opts := &Options{}
	if o != nil {
		*opts = *o
	}

	if opts.Env == nil {
		opts.Env = config.NewEnv()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FailureLimit <= 0 {
		opts.FailureLimit = DefaultFailureLimit
	}

	return opts
}
