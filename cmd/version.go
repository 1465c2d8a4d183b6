package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rexolve %s\nbuilt %s with %s %s/%s\n",
				displayVersion(version, commit), date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// displayVersion returns e.g. "v0.1.0 (abc1234)".
func displayVersion(version, commit string) string {
	v := "v" + version
	if commit != "" && commit != "none" {
		v += " (" + commit + ")"
	}
	return v
}
