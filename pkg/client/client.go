// Package client 控制面客户端的高级封装，供命令行使用
package client

import (
	"fmt"
	"os"

	"outrider/pkg/codec"
	"outrider/pkg/config"
	"outrider/pkg/supervisor"
)

// Status 查询描述符状态，names 为空表示全部
func Status(names ...string) *codec.ResponseMsg {
	return run(&codec.ActionMsg{Action: codec.ActionStatus, Names: names})
}

// Events 查询最近的监督事件
func Events(limit int) *codec.ResponseMsg {
	return run(&codec.ActionMsg{Action: codec.ActionEvents, Limit: limit})
}

// Shutdown 请求守护进程停机
func Shutdown() *codec.ResponseMsg {
	return run(&codec.ActionMsg{Action: codec.ActionShutdown})
}

func run(msg *codec.ActionMsg) *codec.ResponseMsg {
	res, err := supervisor.ClientRun(config.GetConfig().Socket, msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return nil
	}

	if res.Code != 200 {
		fmt.Fprintf(os.Stderr, "%d\t%s\n", res.Code, res.Message)
	}

	return res
}
