package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"SubredditOfTheDay/internal/app"
	"SubredditOfTheDay/internal/config"
	"SubredditOfTheDay/internal/logging"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/schedule"
)

type options struct {
	configPath string
	rehearsal  bool
	every      time.Duration
}

func newRootCommand() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "srotd",
		Short:         "Schedules and publishes the Subreddit of the Day feature",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			application, err := app.New(cmd.Context(), cfg, logger, app.Deps{})
			if err != nil {
				return err
			}
			defer application.Close()

			if opts.every > 0 {
				logger.Info("serving", "every", opts.every.String())
				err = application.Serve(cmd.Context(), opts.every)
			} else {
				err = application.RunOnce(cmd.Context(), time.Now())
			}
			return report(cmd, logger, err)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&opts.rehearsal, "rehearsal", false, "Log platform writes and notifications instead of performing them")
	rootCmd.Flags().DurationVar(&opts.every, "every", 0, "Repeat the run at this interval instead of exiting")

	rootCmd.AddCommand(newScheduleCommand(&opts))
	return rootCmd
}

func newScheduleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Print the calendar computed from the stored snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup(*opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			application, err := app.New(cmd.Context(), cfg, logger, app.Deps{})
			if err != nil {
				return err
			}
			defer application.Close()

			plan := application.Preview(cmd.Context(), time.Now())
			fmt.Fprintln(cmd.OutOrStdout(), schedule.RenderTable(plan))
			return nil
		},
	}
}

func setup(opts options) (config.Config, *slog.Logger, io.Closer, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, nil, nil, fmt.Errorf("load .env: %w", err)
	}
	if opts.configPath != "" {
		if err := os.Setenv("SROTD_CONFIG", opts.configPath); err != nil {
			return config.Config{}, nil, nil, err
		}
	}

	cfg := config.Load()
	if opts.rehearsal {
		cfg.Mode = config.ModeRehearsal
	}

	logger, closer, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, closer, nil
}

func report(cmd *cobra.Command, logger *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrUnauthorized):
		logging.Critical(cmd.Context(), logger, "authentication failed, stopping", "error", err)
		return err
	case errors.Is(err, app.ErrLocked):
		logger.Warn("run skipped", "reason", err)
		return nil
	default:
		logger.Error("run failed", "error", err)
		return err
	}
}
