// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluffyriot/tweetrss/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	var opts cli.Options

	root := &cobra.Command{
		Use:           "tweetrss",
		Short:         "Build RSS feeds from X accounts",
		Long:          "Searches each configured account's posts for the day, resolves them through a headless browser and writes one RSS feed per account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.EnvFile, "env", ".env", "Optional dotenv file")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override TWEETRSS_LOG_LEVEL")

	root.AddCommand(
		runCmd(&opts),
		validateCmd(&opts),
		serveCmd(&opts),
		sessionCmd(&opts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runCmd(opts *cli.Options) *cobra.Command {
	var (
		since    string
		only     []string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch today's posts and write the feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.Bootstrap(*opts)
			if err != nil {
				return err
			}
			return cli.HandleRun(cmd.Context(), app, only, since, validate)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Start date YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Limit the run to these feed keys")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the output directory afterwards")
	return cmd
}

func validateCmd(opts *cli.Options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every feed in the output directory has entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.Bootstrap(*opts)
			if err != nil {
				return err
			}
			return cli.HandleValidate(app, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to check (default: TWEETRSS_OUTPUT_DIR)")
	return cmd
}

func serveCmd(opts *cli.Options) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated feeds, optionally running the job on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.Bootstrap(*opts)
			if err != nil {
				return err
			}
			return cli.HandleServe(cmd.Context(), app, addr, interval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Run the job every interval (0 disables)")
	return cmd
}

func sessionCmd(opts *cli.Options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Write the configured session cookies to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.Bootstrap(*opts)
			if err != nil {
				return err
			}
			return cli.HandleSession(app, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "cookies.json", "Output path")
	return cmd
}
