// Package commands implements the zkctl command-line client.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/internal/logger"
	"github.com/marmos91/zkgo/internal/telemetry"
	"github.com/marmos91/zkgo/pkg/config"
	"github.com/marmos91/zkgo/pkg/metrics"
)

// Build-time version information, injected via ldflags like the
// teacher's cmd/dfsctl.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Flags holds global flag values accessible by every subcommand.
var Flags = &GlobalFlags{}

// Cfg is the configuration loaded by PersistentPreRun, merging
// pkg/config.Load's file/env/default layers beneath the explicit CLI
// flags captured in Flags. Subcommands that need ambient settings
// (auth-on-connect, metrics, the debug server's bind address) read
// it directly instead of re-parsing flags.
var Cfg *config.Config

var telemetryShutdown func(context.Context) error

// GlobalFlags mirrors cmd/dfsctl/cmdutil.GlobalFlags, adapted to this
// client's connection parameters instead of a REST server URL/token.
type GlobalFlags struct {
	Servers        string
	ConnectTimeout string
	SessionTimeout string
	Output         string
	Force          bool
	Verbose        bool
}

var rootCmd = &cobra.Command{
	Use:   "zkctl",
	Short: "Coordination-service control client",
	Long: `zkctl is a command-line client for a ZooKeeper-style coordination
service: inspect and mutate znodes and exercise the auth
sub-protocol, all through the same session core the library uses.

Use "zkctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := loadConfigAndAmbientStack(cmd); err != nil {
			Exit("%v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if telemetryShutdown != nil {
			_ = telemetryShutdown(context.Background())
		}
	},
}

// loadConfigAndAmbientStack loads Cfg, applies CLI-flag overrides on
// top of it (flags win per pkg/config.Config's documented precedence
// order), and brings up logging, metrics, tracing, and profiling
// before any subcommand dials a session.
func loadConfigAndAmbientStack(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	Cfg = cfg

	if cmd.Flags().Changed("servers") {
		Flags.Servers, _ = cmd.Flags().GetString("servers")
	} else {
		Flags.Servers = cfg.Endpoints
	}
	if cmd.Flags().Changed("connect-timeout") {
		Flags.ConnectTimeout, _ = cmd.Flags().GetString("connect-timeout")
	} else {
		Flags.ConnectTimeout = cfg.ConnectTimeout.String()
	}
	if cmd.Flags().Changed("session-timeout") {
		Flags.SessionTimeout, _ = cmd.Flags().GetString("session-timeout")
	} else {
		Flags.SessionTimeout = cfg.SessionTimeout.String()
	}
	Flags.Output, _ = cmd.Flags().GetString("output")
	Flags.Force, _ = cmd.Flags().GetBool("force")
	Flags.Verbose, _ = cmd.Flags().GetBool("verbose")

	logLevel := cfg.Logging.Level
	if Flags.Verbose {
		logLevel = "DEBUG"
	}
	logger.Init(logger.Config{Level: logLevel, Format: cfg.Logging.Format})

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	telemetryShutdown = shutdown

	if _, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Profiling.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
	}); err != nil {
		return fmt.Errorf("init profiling: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("servers", "localhost:2181", "Comma-separated host:port server list")
	rootCmd.PersistentFlags().String("connect-timeout", "10s", "Per-attempt dial+handshake timeout")
	rootCmd.PersistentFlags().String("session-timeout", "30s", "Requested session timeout")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Skip confirmation on destructive operations")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getACLCmd)
	rootCmd.AddCommand(setACLCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(addAuthCmd)
	rootCmd.AddCommand(debugCmd)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
