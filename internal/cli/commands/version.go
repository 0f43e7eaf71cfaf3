package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary. Fields set through -ldflags take
// precedence over what the Go toolchain embedded.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
	Module  string
	Go      string
}

// ResolveBuildInfo fills the empty or "unknown" fields of info from the
// binary's embedded module and VCS metadata.
func ResolveBuildInfo(info BuildInfo) BuildInfo {
	if info.Go == "" {
		info.Go = runtime.Version()
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Module == "" {
		info.Module = bi.Main.Path
	}
	if unset(info.Version) && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if unset(info.Commit) && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		case "vcs.time":
			if unset(info.Date) {
				info.Date = s.Value
			}
		}
	}
	return info
}

func unset(s string) bool { return s == "" || s == "unknown" }

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the sst version together with the commit, build date and Go toolchain it was built from.`,
		Run: func(cmd *cobra.Command, _ []string) {
			info := ResolveBuildInfo(info)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "sst v%s\n", info.Version)
			if info.Module != "" {
				_, _ = fmt.Fprintf(w, "  module:  %s\n", info.Module)
			}
			_, _ = fmt.Fprintf(w, "  commit:  %s\n", orUnknown(info.Commit))
			_, _ = fmt.Fprintf(w, "  built:   %s\n", orUnknown(info.Date))
			_, _ = fmt.Fprintf(w, "  go:      %s\n", info.Go)
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
