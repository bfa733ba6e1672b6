package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outrider/pkg/client"
	"outrider/pkg/codec"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the supervisor daemon and all supervised sidecars",
	Run:   execShutdownCmd,
}

func init() {
	setupCommandPreRun(shutdownCmd, requireDaemonRunning)

	rootCmd.AddCommand(shutdownCmd)
}

func execShutdownCmd(cmd *cobra.Command, args []string) {
	done := make(chan *codec.ResponseMsg, 1)

	go func() {
		done <- client.Shutdown()
	}()

	select {
	case res := <-done:
		if res == nil {
			return
		}
		fmt.Println(res.Message)
	case <-time.After(5 * time.Second):
		fmt.Println("Shutdown request timed out, check the daemon log.")
	}
}
