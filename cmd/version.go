package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"outrider/pkg/utils"
)

// 发布构建时通过 -ldflags 注入
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

func execVersionCmd(cmd *cobra.Command, args []string) {
	fmt.Printf("%s %s (commit %s, built %s, %s/%s)\n",
		utils.RuntimeModuleName, Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
