package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nuxeo/spreadsheet-schemas/pkg/cprint"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "NXSCHEMAS"

const (
	exitGeneric         = 1
	exitInvalidArgument = 2
	exitIncomplete      = 3
)

var (
	errInvalidArgument = errors.New("invalid argument")
	errIncomplete      = errors.New("some schemas could not be resolved")
)

type rootConfig struct {
	ConfigFile string
	LogLevel   string
	NoColor    bool
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		cprint.ErrorPrintlnStdErr("Error:", err)
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := rootConfig{}
	cmd := &cobra.Command{
		Use:           "nxschemas",
		Short:         "Resolve document schemas and their fields from a content repository",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			setupColor(viper.GetBool("no_color"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("no_color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.AddCommand(newFetchCommand())
	cmd.AddCommand(newColumnsCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: reading config file: %w", errInvalidArgument, err)
		}
		return nil
	}

	viper.SetConfigName("nxschemas")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/nxschemas")
	// a missing default config file is fine
	_ = viper.ReadInConfig()
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func setupColor(disabled bool) {
	if disabled || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func exitCodeForError(err error) int {
	switch {
	case errors.Is(err, errInvalidArgument):
		return exitInvalidArgument
	case errors.Is(err, errIncomplete):
		return exitIncomplete
	default:
		return exitGeneric
	}
}
