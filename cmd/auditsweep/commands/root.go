package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigFilename = ".auditsweep"
	envPrefix             = "AUDITSWEEP"
)

var rootCmd = &cobra.Command{
	SilenceUsage:      true,
	Use:               "auditsweep",
	Short:             "Run npm audit across every project in a directory tree",
	Version:           version,
	DisableAutoGenTag: true,
	Long: `auditsweep discovers npm projects under a start folder, runs
'npm audit --json' in each one, extracts the critical-severity issues and
writes a per-run JSON report plus a module@version summary.

Configuration can be provided via flags, a ./.auditsweep config file or
environment variables (prefix AUDITSWEEP_).`,
	Example: `  # Audit every project under the current directory
  auditsweep scan

  # Audit a monorepo, keeping only issues matching an explicit target list
  auditsweep scan --start ~/code/monorepo --check-file targets.json

  # Rebuild the module@version summary from an earlier report
  auditsweep summarize audits-monorepo_20260825T153000+0200.json --top 20`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init the logger - get the level
		level, err := cmd.Flags().GetString("logLevel")
		if err != nil {
			return err
		}

		switch level {
		case "debug":
			initLogger(slog.LevelDebug)
		case "info":
			initLogger(slog.LevelInfo)
		case "warn":
			initLogger(slog.LevelWarn)
		case "error":
			initLogger(slog.LevelError)
		default:
			initLogger(slog.LevelInfo)
		}

		// pick up AUDITSWEEP_* vars from a local .env, if any
		_ = godotenv.Load()

		return initializeConfig(cmd)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("auditsweep\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Built:      %s\n", date)
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		NewScanCommand(),
		NewSummarizeCommand(),
		NewDoctorCommand(),
	)

	rootCmd.PersistentFlags().StringP("logLevel", "l", "info", "Set the log level. Options: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./"+defaultConfigFilename+".yaml)")
}

// initLogger installs a tint handler as the default slog logger. Colored
// output makes interleaved per-project log lines much easier to scan.
func initLogger(level slog.Leveler) {
	w := os.Stderr

	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	))
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(defaultConfigFilename)
	}

	// Only the working directory is searched for a config file.
	viper.AddConfigPath(".")

	// Attempt to read the config file, gracefully ignoring errors caused
	// by a config file not being found. Return an error if we cannot
	// parse the config file.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Debug("no config file found")
	}

	viper.SetEnvPrefix(envPrefix)
	// Environment variables can't have dashes in them, so bind them to
	// their equivalent keys with underscores, e.g. --check-file to
	// AUDITSWEEP_CHECK_FILE.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	bindFlags(cmd)
	return nil
}

// Bind each cobra flag to its associated viper configuration (config file
// and environment variable).
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name

		// Apply the viper config value to the flag when the flag is not
		// set and viper has a value.
		if !f.Changed && viper.IsSet(configName) {
			val := viper.Get(configName)
			cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)) // nolint: errcheck
		}

		if err := viper.BindPFlag(configName, f); err != nil {
			slog.Error("could not bind flag to viper", "err", err)
		}
	})
}
