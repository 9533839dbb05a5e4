package main

import (
	"fmt"
	"log/slog"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/bricks"
	"github.com/cryptii/cryptii-sub001/config"
	"github.com/cryptii/cryptii-sub001/extensions"
	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	logger  *slog.Logger
	factory *bricks.Factory
}

func newRootCmd() *cobra.Command {
	a := &app{factory: bricks.DefaultFactory()}

	root := &cobra.Command{
		Use:           "cryptii",
		Short:         "Run encode and decode pipes built from bricks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text, json, human)")

	root.AddCommand(
		newBricksCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
		newSaveCmd(a),
		newLoadCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	return nil
}

// newPipe builds an empty pipe with the configured options. Unexpected
// brick failures are reported on stderr.
func (a *app) newPipe(cmd *cobra.Command, trace bool) *cryptii.Pipe {
	level := slog.LevelError
	if trace {
		level = slog.LevelDebug
	}
	opts := append(a.cfg.PipeOptions(),
		cryptii.WithFactory(a.factory),
		cryptii.WithLogger(a.logger),
		cryptii.WithContext(cmd.Context()),
		cryptii.WithExtension(extensions.NewPipeDebugExtension(extensions.NewHumanHandler(cmd.ErrOrStderr(), level))),
	)
	if trace {
		opts = append(opts, cryptii.WithExtension(extensions.NewLoggingExtension(a.logger)))
	}
	return cryptii.New(opts...)
}

func newBricksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bricks",
		Short: "List the available brick names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range a.factory.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
