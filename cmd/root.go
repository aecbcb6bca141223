// Package cmd contains the livid command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/config"
	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/internal/version"
)

// CreateRootCmd creates the livid root command. Logging is initialized
// before any subcommand runs, with flag values taking precedence over
// the config file.
func CreateRootCmd() *cobra.Command {
	var configFile string
	var logLevel string
	var logFormat string

	root := &cobra.Command{
		Use:   "livid",
		Short: "V4L2 capture and streaming tool",
		Long: `livid talks to Video4Linux devices: it lists devices and their
formats, captures frames through memory-mapped streaming I/O, feeds
frames into output devices, and watches for hotplug events.`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			loggingConfig := config.LoadLoggingConfig(configFile)
			if logLevel != "" {
				loggingConfig.Level = logLevel
			}
			if logFormat != "" {
				loggingConfig.Format = logFormat
			}
			if loggingConfig.Level == "" {
				loggingConfig.Level = "info"
			}
			if loggingConfig.Format == "" {
				loggingConfig.Format = "text"
			}
			logging.Initialize(loggingConfig)
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "config.toml", "Path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(CreateDevicesCmd())
	root.AddCommand(CreateFormatsCmd())
	root.AddCommand(CreateCaptureCmd(&configFile))
	root.AddCommand(CreateOutputCmd())
	root.AddCommand(CreateWatchCmd())
	root.AddCommand(CreateProfileCmd())
	root.AddCommand(createVersionCmd())

	return root
}

func createVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Printf("livid %s\n", info.Version)
			fmt.Printf("  commit:   %s\n", info.GitCommit)
			fmt.Printf("  built:    %s\n", info.BuildDate)
			fmt.Printf("  go:       %s (%s)\n", info.GoVersion, info.Platform)
		},
	}
}
