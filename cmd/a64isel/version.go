package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/a64isel/pkg/target"
)

// Version is overridden at link time with -ldflags "-X main.Version=..."
var Version = "dev"

func init() {
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Print the version of a64isel",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			generateCmdOutput(cmd.OutOrStdout())
		},
	}
	RootCommand.AddCommand(versionCommand)
}

func generateCmdOutput(out io.Writer) {
	fmt.Fprintln(out, "Version: "+Version)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				fmt.Fprintln(out, "Build Commit: "+s.Value)
			}
		}
	}
	fmt.Fprintln(out, "Go Version: "+runtime.Version())
	fmt.Fprintln(out, "Platform: "+runtime.GOOS+"/"+runtime.GOARCH)
	fmt.Fprintln(out, "Default Target: "+target.Default().Name)
}
