// Package cmd defines the primerblast command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/app"
	"github.com/JakeFAU/primerblast-validator/internal/config"
	"github.com/JakeFAU/primerblast-validator/internal/logging"
)

type envKeyType struct{}

// env is what PersistentPreRunE hands to every subcommand.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. It's a variable so tests can swap in
// a private metrics registry.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger, app.Options{})
}

type rootOptions struct {
	configPath string
	logDev     bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "primerblast",
		Short: "Submit primer pairs to NCBI Primer-BLAST and validate the results.",
		Long: `primerblast submits designed primer pairs to NCBI Primer-BLAST, then
fetches each job's result page and checks that the reported pair matches the
expected coordinates, product size and sequences.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-dev") {
				cfg.Logging.Development = opts.logDev
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKeyType{}, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKeyType{}).(*env); ok {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML)")
	cmd.PersistentFlags().BoolVar(&opts.logDev, "log-dev", false, "use the development (console) logger")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAnalyzeCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKeyType{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not initialized")
	}
	return e, nil
}

// parseWindow reads the optional [start] [end] positional arguments.
func parseWindow(args []string) (int, *int, error) {
	start := 0
	var end *int
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, nil, fmt.Errorf("invalid start %q: %w", args[0], err)
		}
		start = v
	}
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return 0, nil, fmt.Errorf("invalid end %q: %w", args[1], err)
		}
		end = &v
	}
	return start, end, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger, lerr := zap.NewProduction()
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		stop()
		os.Exit(1)
	}
}
