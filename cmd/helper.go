package cmd

import (
	"log"
	"syscall"

	"github.com/spf13/cobra"

	"outrider/pkg/config"
	"outrider/pkg/utils"
)

// setupCommandPreRun 在根命令的 PersistentPreRun 之后追加子命令自己的钩子
func setupCommandPreRun(cmd *cobra.Command, extra func()) {
	cmd.PersistentPreRun = func(c *cobra.Command, args []string) {
		rootCmd.PersistentPreRun(c, args)

		if extra != nil {
			extra()
		}
	}
}

func isPidActive(pid int) bool {
	if pid <= 0 {
		return false
	}

	_, err := syscall.Getpgid(pid)

	return err == nil
}

func isDaemonRunning() bool {
	pid, err := utils.ReadPid(config.GetConfig().PidFile)
	if err != nil {
		return false
	}

	return isPidActive(pid)
}

func requireDaemonRunning() {
	if !isDaemonRunning() {
		log.Fatalln("Outrider supervisor daemon is not running.")
	}
}
