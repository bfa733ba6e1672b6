// Package logger 提供基于 zap 的命名日志入口
//
// 本模块负责：
// - 构建全局唯一的日志核心（控制台 + 可选的滚动文件）
// - 通过 Logging(name) 为各组件发放命名子日志器
// - 支持运行期调整日志级别
//
// 注意事项：
//
//	日志核心在首次调用 Logging 时构建一次，文件输出依赖
//	config.SetConfig 已经加载的守护进程配置；纯库方式嵌入时
//	只输出到控制台。
package logger

import (
	"os"
	"sync"

	"outrider/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once  sync.Once
	level zap.AtomicLevel
	root  *zap.Logger
)

func build() {
	level = zap.NewAtomicLevelAt(parseLevel(config.LogLevelFlag))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	cfg := config.GetConfig()
	if cfg != nil && cfg.Log.FileEnabled {
		sink := &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.FileSize,
			MaxAge:     cfg.Log.MaxAge,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.FileCompress,
		}

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level))
	}

	root = zap.New(zapcore.NewTee(cores...))
}

// Logging 返回指定名字的 SugaredLogger
//
// 参数：
//
//	name: 日志器名字，会出现在每条日志的 logger 字段中
//
// 示例：
//
//	log := logger.Logging("supervisor")
//	log.Infof("started with pid %d", pid)
func Logging(name string) *zap.SugaredLogger {
	once.Do(build)

	return root.Named(name).Sugar()
}

// SetLevel 调整全局日志级别，非法的级别字符串会被忽略
func SetLevel(l string) {
	once.Do(build)

	level.SetLevel(parseLevel(l))
}

func parseLevel(s string) zapcore.Level {
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.DebugLevel
	}

	return l
}
