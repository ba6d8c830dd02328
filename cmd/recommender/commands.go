// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/juliannp253/Movies-Recommender/internal/auth"
	"github.com/juliannp253/Movies-Recommender/internal/config"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
	"github.com/juliannp253/Movies-Recommender/internal/validation"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options shared by every subcommand, filled by the root PersistentPreRunE.
type options struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "recommender",
		Short: "Personalized movie recommendation pipeline",
		Long: `recommender mines candidate movies for a user from similar users, their
favorite titles and trending genres, has a language model organize them into
themed sections, and stores the hydrated result.

Configuration comes from config.yaml (or $CONFIG_PATH) and environment
variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Caller: cfg.Logging.Caller,
			})
			metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.AddCommand(
		newRunCmd(opts),
		newBatchCmd(opts),
		newServeCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newRunCmd(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate recommendations for one user",
		Long:  "Runs the full pipeline for --user-id, stores the result and prints it as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validation.ValidateVar(userID, "required,max=128,printascii"); err != nil {
				return fmt.Errorf("invalid --user-id: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.pipeline.Run(ctx, userID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user to generate recommendations for")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newBatchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [user-id...]",
		Short: "Generate recommendations for many users",
		Long:  "Runs the pipeline for the given users, or for every known user when none are given, and prints a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var summary *recommend.BatchSummary
			if len(args) > 0 {
				summary = a.batch.RunUsers(ctx, "cli", args)
			} else if summary, err = a.batch.RunAll(ctx, "cli"); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "users: %d  succeeded: %d  failed: %d  duration: %s\n",
				summary.Total, summary.Succeeded, summary.Failed, summary.Duration)
			for id, msg := range summary.FailureMessages() {
				fmt.Fprintf(out, "  %s: %s\n", id, msg)
			}
			if failOnError, _ := cmd.Flags().GetBool("fail-on-error"); failOnError && summary.Failed > 0 {
				return fmt.Errorf("%d of %d users failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().Bool("fail-on-error", false, "exit non-zero when any user fails")
	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		Long:  "Signs a JWT for --subject with the configured secret. Users may only access their own recommendations; admins may access any and trigger batches.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleUser && role != auth.RoleAdmin {
				return fmt.Errorf("--role must be %q or %q", auth.RoleUser, auth.RoleAdmin)
			}
			mgr, err := auth.NewJWTManager(&opts.cfg.Security)
			if err != nil {
				return err
			}
			token, err := mgr.GenerateToken(subject, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id the token is issued to")
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "token role (user or admin)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recommender %s (%s)\n", version, runtime.Version())
		},
	}
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
