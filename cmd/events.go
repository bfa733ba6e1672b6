package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outrider/pkg/client"
)

var eventLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent supervision events",
	Run:   execEventsCmd,
}

func init() {
	eventsCmd.PersistentFlags().IntVarP(&eventLimit, "limit", "n", 20, "Max number of events to show")

	setupCommandPreRun(eventsCmd, requireDaemonRunning)

	rootCmd.AddCommand(eventsCmd)
}

func execEventsCmd(cmd *cobra.Command, args []string) {
	res := client.Events(eventLimit)
	if res == nil {
		return
	}

	if len(res.Events) == 0 {
		fmt.Println("No events recorded.")
		return
	}

	for _, ev := range res.Events {
		target := ev.Sidecar
		if target == "" {
			target = "-"
		}

		detail := ev.Detail
		if ev.Pid > 0 {
			detail = fmt.Sprintf("pid=%d %s", ev.Pid, detail)
		}
		if ev.Port > 0 {
			detail = fmt.Sprintf("port=%d %s", ev.Port, detail)
		}

		fmt.Printf("%s  %-16s %-16s %s\n",
			ev.Time.Format(time.RFC3339), ev.Kind, target, detail)
	}
}
