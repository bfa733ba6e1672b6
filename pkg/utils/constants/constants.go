// Package constants
package constants

import (
	"fmt"
	"os"
)

const (
	DefaultLogLevel   = "debug"
	DefaultDaemonName = "outrider"
)

var OutriderHome = getHome()

var DaemonLogFilePath = getDaemonPath("log")
var DaemonPidFilePath = getDaemonPath("pid")
var DaemonSockFilePath = getDaemonPath("sock")

var JournalDirPath = fmt.Sprintf("%s/journal", OutriderHome)
var ManifestFilePath = fmt.Sprintf("%s/manifest.yml", OutriderHome)

func getHome() string {
	return fmt.Sprintf("%s/.%s", os.Getenv("HOME"), DefaultDaemonName)
}

func getDaemonPath(suffix string) string {
	return fmt.Sprintf("%s/%s.%s", OutriderHome, DefaultDaemonName, suffix)
}
