package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"outrider/pkg/client"
)

var statusCmd = &cobra.Command{
	Use:   "status [sidecar...]",
	Short: "Show the state of supervised sidecars",
	Run:   execStatusCmd,
}

func init() {
	setupCommandPreRun(statusCmd, requireDaemonRunning)

	rootCmd.AddCommand(statusCmd)
}

func execStatusCmd(cmd *cobra.Command, args []string) {
	res := client.Status(args...)
	if res == nil {
		return
	}

	if len(res.Sidecars) == 0 {
		fmt.Println("No sidecars found.")
		return
	}

	for _, sc := range res.Sidecars {
		port := "-"
		if sc.Port > 0 {
			port = strconv.Itoa(sc.Port)
		}

		fmt.Printf("%-20s %-12s PID: %-8d Port: %-8s Failures: %d\n",
			sc.Name, sc.State, sc.Pid, port, sc.Failures)
	}
}
