package common

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

const (
	ProjectName    = "Signal Backtester"
	ProjectVersion = "1.0.0"
	ProjectRepo    = "github.com/ducminhle1904/signal-backtester"
)

// Build information, set with -ldflags "-X ..."
var (
	BuildDate   = "unknown"
	BuildCommit = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
	Repository   string `json:"repository"`
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
		Repository:   ProjectRepo,
	}
}

// GetFullVersion returns a full version string with build info
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s-%s (%s)", info.Version, info.BuildCommit, info.BuildDate)
}

// PrintVersion is installed as the cli version printer
func PrintVersion(cmd *cli.Command) {
	info := GetVersionInfo()
	fmt.Printf("%s v%s\n", cmd.Root().Name, info.Version)
	fmt.Printf("Build: %s (%s)\n", info.BuildCommit, info.BuildDate)
	fmt.Printf("Go: %s (%s)\n", info.GoVersion, info.Architecture)
}

func init() {
	cli.VersionPrinter = PrintVersion
}
