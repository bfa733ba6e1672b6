package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"outrider/pkg/utils/constants"

	"github.com/spf13/viper"
)

// 命令行全局标志，由 cmd 包在启动时绑定
var (
	LogLevelFlag   string
	ConfigFileFlag string
	ManifestFlag   string
	ForegroundFlag bool
)

var config *Config

// configViperMutex 保护全局配置加载时的 viper 全局状态操作
var configViperMutex sync.Mutex

type Config struct {
	Daemonize   bool   `yaml:"daemonize" mapstructure:"daemonize"`
	PidFile     string `yaml:"pidfile" mapstructure:"pidfile"`
	Socket      string `yaml:"socket" mapstructure:"socket"`
	JournalDir  string `yaml:"journal_dir" mapstructure:"journal_dir"`
	Manifest    string `yaml:"manifest" mapstructure:"manifest"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr,omitempty"`
	Log         Log    `yaml:"log" mapstructure:"log"`
}

type Log struct {
	Level        string `yaml:"level,omitempty" mapstructure:"level,omitempty"`
	FileEnabled  bool   `yaml:"file_enabled" mapstructure:"file_enabled"`
	FilePath     string `yaml:"file_path,omitempty" mapstructure:"file_path,omitempty"`
	FileSize     int    `yaml:"file_size,omitempty" mapstructure:"file_size,omitempty"`
	FileCompress bool   `yaml:"file_compress,omitempty" mapstructure:"file_compress,omitempty"`
	MaxAge       int    `yaml:"max_age,omitempty" mapstructure:"max_age,omitempty"`
	MaxBackups   int    `yaml:"max_backups,omitempty" mapstructure:"max_backups,omitempty"`
}

func setDefault() {
	viper.SetDefault("daemonize", true)
	viper.SetDefault("pidfile", constants.DaemonPidFilePath)
	viper.SetDefault("socket", constants.DaemonSockFilePath)
	viper.SetDefault("journal_dir", constants.JournalDirPath)
	viper.SetDefault("manifest", constants.ManifestFilePath)
	viper.SetDefault("log", map[string]any{
		"Level":        constants.DefaultLogLevel,
		"FilePath":     constants.DaemonLogFilePath,
		"FileEnabled":  true,
		"FileCompress": false,
		"FileSize":     10,
		"MaxAge":       7,
		"MaxBackups":   7,
	})
}

func GetConfig() *Config {
	return config
}

func SetConfig(configFile string) {
	configViperMutex.Lock()
	defer configViperMutex.Unlock()

	_, err := os.Stat(configFile)
	if errors.Is(err, os.ErrNotExist) {
		cfgName := fmt.Sprintf("%s.yml", constants.DefaultDaemonName)

		viper.SetConfigName(cfgName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("etc")
		viper.AddConfigPath("../etc")
		viper.AddConfigPath(constants.OutriderHome)
	} else if err != nil {
		log.Fatal(err)
	} else {
		viper.SetConfigFile(configFile)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(envReplacer)

	setDefault()

	err = viper.ReadInConfig()
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		log.Fatalf("Error getting config file, %v", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		fmt.Println("Unable to decode into struct, ", err)
	}
}

// EnvPrefix 是所有环境变量覆盖项的统一前缀
const EnvPrefix = "OUTRIDER"

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// Env 是面向托管进程的外部配置面
//
// 职责：
// - 读取每个托管进程的启动路径和启动参数
// - 回写协商出来的端口号，让宿主内其他组件读取
// - 把配置键换算成子进程继承的环境变量名
//
// 每个 Supervisor 持有独立的 Env 实例，互不串扰；
// 环境变量按 viper 规则覆盖同名配置键。
type Env struct {
	v *viper.Viper
}

func NewEnv() *Env {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envReplacer)

	return &Env{v: v}
}

func (e *Env) GetString(key string) string {
	return e.v.GetString(key)
}

func (e *Env) GetInt(key string) int {
	return e.v.GetInt(key)
}

func (e *Env) IsSet(key string) bool {
	return e.v.IsSet(key)
}

func (e *Env) Set(key string, value any) {
	e.v.Set(key, value)
}

func (e *Env) SetDefault(key string, value any) {
	e.v.SetDefault(key, value)
}

// EnvName 把配置键换算成环境变量名
//
// 示例：
//
//	e.EnvName("sidecars.trace-agent.port")  // "OUTRIDER_SIDECARS_TRACE_AGENT_PORT"
func (e *Env) EnvName(key string) string {
	return fmt.Sprintf("%s_%s", EnvPrefix, envReplacer.Replace(strings.ToUpper(key)))
}

// PortEnv 生成向子进程发布端口用的环境变量条目
func (e *Env) PortEnv(key string, port int) string {
	return fmt.Sprintf("%s=%d", e.EnvName(key), port)
}
