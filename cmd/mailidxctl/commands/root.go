// Package commands implements the mailidxctl CLI commands.
package commands

import (
	"github.com/marmos91/mailidx/internal/logger"
	"github.com/marmos91/mailidx/pkg/config"
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "mailidxctl",
	Short:         "Inspect and replay a mailidx transaction log",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to mailidx config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(fsckCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mailidxctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("mailidxctl %s (%s)\n", Version, Commit)
		return nil
	},
}
