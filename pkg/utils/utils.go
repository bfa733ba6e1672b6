// Package utils
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"outrider/pkg/utils/constants"
)

var RuntimeModuleName = constants.DefaultDaemonName

// SupervisorPid 当前宿主进程的 PID
var SupervisorPid = os.Getpid()

// StopChan 接收系统终止信号，FinishChan 用于通知控制服务退出
var StopChan = make(chan os.Signal, 1)
var FinishChan = make(chan struct{}, 1)

// InitEnv 初始化运行环境，确保数据目录存在
func InitEnv() {
	if err := CheckPerm(constants.OutriderHome); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func CheckPerm(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}

		return os.MkdirAll(dir, 0755)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}

	return nil
}

// ReadPid 从 PID 文件中读取进程号
//
// 参数：
//
//	path: PID 文件路径
//
// 返回：
//
//	int: 读取到的 PID，文件不存在或内容非法时返回 -1
//	error: 读取失败的原因
func ReadPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, err
	}

	return pid, nil
}

func WriteDaemonPid(path string, pid int) error {
	data := fmt.Sprintf("%d\n", pid)

	return os.WriteFile(path, []byte(data), 0644)
}
