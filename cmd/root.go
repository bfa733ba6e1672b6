package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"outrider/pkg/config"
	"outrider/pkg/logger"
	"outrider/pkg/utils"
	"outrider/pkg/utils/constants"
)

var showVersion bool

var rootCmd = &cobra.Command{
	Use:           utils.RuntimeModuleName,
	Short:         "Outrider keeps auxiliary sidecar processes alive",
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			execVersionCmd(cmd, args)
			os.Exit(0)
		}

		_ = cmd.Usage()
	},
}

// Execute 命令行入口
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Print version and exit")
	rootCmd.PersistentFlags().StringVarP(&config.LogLevelFlag, "loglevel", "l", constants.DefaultLogLevel, "Set log level")
	rootCmd.PersistentFlags().StringVarP(&config.ConfigFileFlag, "config", "c", "", "The path to the daemon config file")
	rootCmd.PersistentFlags().StringVarP(&config.ManifestFlag, "manifest", "m", "", "The path to the sidecar manifest")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		execRootPersistentPreRun()
	}
}

func execRootPersistentPreRun() {
	utils.InitEnv()

	config.SetConfig(config.ConfigFileFlag)
	logger.SetLevel(config.LogLevelFlag)
}
