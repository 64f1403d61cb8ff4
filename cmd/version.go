package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// 构建时通过 ldflags 注入
var (
	Version   = ""
	BuildTime = ""
	GitCommit = ""
)

// getVersion ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func getCommit() string {
	if GitCommit != "" {
		return GitCommit
	}
	return buildSetting("vcs.revision", 7)
}

func getBuildTime() string {
	if BuildTime != "" {
		return BuildTime
	}
	return buildSetting("vcs.time", 0)
}

func buildSetting(key string, maxLen int) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == key && setting.Value != "" {
				if maxLen > 0 && len(setting.Value) > maxLen {
					return setting.Value[:maxLen]
				}
				return setting.Value
			}
		}
	}
	return "unknown"
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// 不需要加载配置
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cutout version %s\n", getVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", getCommit())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", getBuildTime())
		},
	}
}
