package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/trainriggo/internal/app"
	"github.com/vk/trainriggo/internal/hclcfg"
	"github.com/vk/trainriggo/internal/ranklog"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type flags struct {
	configs   []string
	overrides []string
	logFormat string
	logLevel  string
}

// NewRootCmd builds the root command with the train and eval subcommands.
func NewRootCmd(outW io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "trainriggo",
		Short: "A configuration-driven training and evaluation harness.",
		Long: `trainriggo composes a hierarchical HCL configuration, instantiates the
data module, model, trainer, callbacks, and experiment loggers it selects,
and drives a fit/test lifecycle while persisting run metadata.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)

	root.PersistentFlags().StringSliceVarP(&f.configs, "config", "c", nil,
		"Path to a .hcl config file or directory; repeatable, layered in order.")
	root.PersistentFlags().StringArrayVarP(&f.overrides, "set", "S", nil,
		"Config override as key.path=value; the value is an HCL expression.")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", "text",
		"Log output format. Options: 'text' or 'json'.")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info",
		"Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	root.AddCommand(&cobra.Command{
		Use:   "train",
		Short: "Train a model, optionally testing the best checkpoint afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, outW, f, app.ModeTrain)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "eval",
		Short: "Evaluate a trained checkpoint on the test set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, outW, f, app.ModeEval)
		},
	})

	return root
}

func runMode(cmd *cobra.Command, outW io.Writer, f *flags, mode app.Mode) error {
	appConfig, err := validate(f)
	if err != nil {
		return err
	}

	application := app.NewApp(outW, appConfig, hclcfg.NewLoader())
	if _, err := application.Run(cmd.Context(), mode); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}

func validate(f *flags) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	appConfig, err := app.NewConfig(app.Config{
		ConfigPaths: f.configs,
		Overrides:   f.overrides,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Rank:        ranklog.RankFromEnv(),
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return appConfig, nil
}
