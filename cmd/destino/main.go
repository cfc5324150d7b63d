// Command destino runs, builds and deploys a destino site.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eringen/destino"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    destino.SiteConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "destino",
	Short: "destino - a tourism directory with a static prerender pipeline",
	Long: `destino serves a directory of hotels, restaurants, events and activities
and prerenders every public route into static HTML with complete SEO metadata.

The static pipeline runs build, prerender and validate in order; deploy hands
the validated output to static hosting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		// init and version run outside a site directory.
		if cmd == initCmd || cmd == versionCmd {
			return nil
		}
		cfg, err = destino.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "destino.yaml", "Site config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
