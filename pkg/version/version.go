package version

import (
	"fmt"
	"runtime"
)

const ServiceName = "fund-service"

// Set at build time with -ldflags "-X .../pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Service:   ServiceName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent identifies this service to upstream collaborators
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ServiceName, Version)
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s, %s)",
		i.Service, i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}
