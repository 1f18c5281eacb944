// Package cmd implements the CLI commands for summarize.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/config"
	"github.com/jmylchreest/summarize/internal/observability"
	"github.com/jmylchreest/summarize/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	appLogger *slog.Logger
	appConfig *config.Config
)

// rootCmd is the base command: `summarize <url>` runs one job end to end.
// Subcommands (serve, refresh-free, install) cover the daemon and
// maintenance surfaces.
var rootCmd = &cobra.Command{
	Use:     "summarize [url]",
	Short:   "Summarize a web page, article, or video",
	Version: version.Short(),
	Long: `summarize extracts the readable content (or transcript, for video) behind
a URL and produces a length- and language-controlled summary using a
configurable language model, with optional slide extraction for video
sources and a long-running daemon mode for editor/browser integrations.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initApp()
	},
	RunE: runSummarize,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.summarize/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	mustBindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	registerSummarizeFlags(rootCmd)
}

// initConfig sets config defaults before Load reads the file/env layers in,
// mirroring the teacher's cobra.OnInitialize(initConfig) wiring.
func initConfig() {
	config.SetDefaults(viper.GetViper())
}

// initApp loads configuration and builds the shared logger; it runs once,
// via rootCmd's PersistentPreRunE, before any subcommand body.
func initApp() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg
	appLogger = observability.NewLogger(cfg.Logging)
	observability.SetDefault(appLogger)
	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding
// fails, the same lint-satisfying pattern the teacher uses for every
// persistent flag bind.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}

// ExitCodeFor resolves a process exit code from an error returned by
// Execute, consulting the attached apperror.Kind when present.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := apperror.As(err)
	if !ok {
		return 1
	}
	return apperror.ExitCode(kind)
}
