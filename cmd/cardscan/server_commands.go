package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cardscan/internal/daemonctl"
	"cardscan/internal/daemonrun"
)

const (
	serverStartTimeout = 10 * time.Second
	serverStopGrace    = 5 * time.Second
)

func newServerCommand(ctx *commandContext) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Run or control the cardscand HTTP server",
	}

	var runLogLevel string
	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    runLogLevel,
				Development: development,
				Version:     version,
			})
		},
	}
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Override the configured log level")
	runCmd.Flags().BoolVar(&development, "development", false, "Include source locations in logs")

	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.launchConfigPath(),
				LogLevel:   startLogLevel,
			}, serverStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Server already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Server started at %s (pid %d)\n", ctx.serverURL(), result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, ctx.configValue().PIDPath(), serverStopGrace)
			out := cmd.OutOrStdout()
			if errors.Is(err, daemonctl.ErrServerNotRunning) {
				fmt.Fprintln(out, "Server is not running")
				return nil
			}
			if err != nil {
				return ctx.wrapServerError(err)
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Server did not exit after %s; killed pid %d\n", serverStopGrace, result.PID)
				return nil
			}
			fmt.Fprintf(out, "Server stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	serverCmd.AddCommand(runCmd, startCmd, stopCmd)
	return serverCmd
}
