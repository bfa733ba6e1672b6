package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"outrider/pkg/config"
	"outrider/pkg/supervisor"
	"outrider/pkg/utils"
	"outrider/pkg/utils/constants"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sidecar supervisor daemon",
	Run:   execDaemonCmd,
}

func init() {
	daemonCmd.PersistentFlags().BoolVarP(&config.ForegroundFlag, "foreground", "f", false, "Stay in the foreground instead of daemonizing")

	setupCommandPreRun(daemonCmd, func() {
		if err := utils.CheckPerm(constants.OutriderHome); err != nil {
			log.Fatalln(err)
		}
	})

	rootCmd.AddCommand(daemonCmd)
}

func execDaemonCmd(cmd *cobra.Command, args []string) {
	if isDaemonRunning() {
		fmt.Println("Outrider supervisor daemon is running. Don't start it again.")
		return
	}

	// 配置文件里 daemonize: false 等效于 --foreground
	if !config.GetConfig().Daemonize {
		config.ForegroundFlag = true
	}

	sv, err := buildSupervisor()
	if err != nil {
		log.Fatalln(err)
	}

	sv.Daemon()
}

// buildSupervisor 加载清单、落配置面并注册全部描述符
func buildSupervisor() (*supervisor.Supervisor, error) {
	manifestPath := config.ManifestFlag
	if manifestPath == "" {
		manifestPath = config.GetConfig().Manifest
	}

	manifest, err := supervisor.LoadManifest(manifestPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		manifest = supervisor.DefaultManifest()
	}

	if !manifest.IsValid() {
		return nil, errors.New("invalid manifest, sidecar names must consist of 'a-z A-Z 0-9 - _'")
	}

	env := config.NewEnv()
	sv := supervisor.NewSupervisor(&supervisor.Options{Env: env})

	for _, sc := range manifest.Apply(env) {
		sv.Register(sc)
	}

	return sv, nil
}
