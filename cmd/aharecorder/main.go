// aharecorder polls a home automation gateway for its device list and
// records every snapshot to the configured backends.
//
//	aharecorder run -c config.toml   poll until interrupted
//	aharecorder defconfig            print the default configuration
//	aharecorder version              print build information
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nerrad567/aha-recorder/internal/bridges/aha"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/errchain"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/poller"
	"github.com/nerrad567/aha-recorder/internal/recorder"
	"github.com/nerrad567/aha-recorder/internal/recorder/console"
	"github.com/nerrad567/aha-recorder/internal/recorder/csvsink"
	"github.com/nerrad567/aha-recorder/internal/recorder/influx"
	"github.com/nerrad567/aha-recorder/internal/recorder/mqttsink"
	"github.com/nerrad567/aha-recorder/internal/recorder/sqlsink"
	"github.com/nerrad567/aha-recorder/internal/recorder/tsdbsink"
	"github.com/nerrad567/aha-recorder/internal/recorder/websink"
)

// healthCheckTimeout bounds the startup check of all backends.
const healthCheckTimeout = 10 * time.Second

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		errchain.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// backendKinds lists every backend type in dispatch order.
func backendKinds() []recorder.Kind {
	return []recorder.Kind{
		console.Kind(),
		csvsink.Kind(),
		influx.Kind(),
		mqttsink.Kind(),
		sqlsink.Kind(),
		tsdbsink.Kind(),
		websink.Kind(version),
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "aharecorder",
		Short:         "Record gateway device readings to console, files and databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newRunCmd(), newDefconfigCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log into the gateway and poll until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, backendKinds())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (TOML, YAML or JSON)")
	return cmd
}

func newDefconfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defconfig",
		Short: "Print the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := newStore(backendKinds())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), store.RenderDefaults())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aharecorder %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// newStore registers the core sections and every backend section.
func newStore(kinds []recorder.Kind) (*config.Store, error) {
	s := config.New()
	if err := config.AddDefaults(s, config.SectionBase, config.DefaultBaseConfig()); err != nil {
		return nil, err
	}
	if err := config.AddDefaults(s, config.SectionLogging, config.DefaultLoggingConfig()); err != nil {
		return nil, err
	}
	if err := recorder.RegisterKinds(s, kinds); err != nil {
		return nil, err
	}
	return s, nil
}

// run is the application logic, separated from main for testability.
// Every error returned happened before or during login and is fatal.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - configPath: Configuration file; "" runs on defaults and environment
//   - kinds: Known backend types
//
// Returns:
//   - error: nil on clean shutdown, or the fatal error chain
func run(ctx context.Context, configPath string, kinds []recorder.Kind) error {
	store, err := newStore(kinds)
	if err != nil {
		return errors.Wrap(err, "failed to register configuration")
	}

	if configPath != "" {
		if err := store.Load(configPath); err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
	} else {
		store.Refresh()
	}

	base, err := config.Get[config.BaseConfig](store, config.SectionBase)
	if err != nil {
		return errors.Wrap(err, "failed to read configuration")
	}
	if err := base.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	logCfg, err := config.Get[config.LoggingConfig](store, config.SectionLogging)
	if err != nil {
		return errors.Wrap(err, "failed to read configuration")
	}

	log := logging.New(logCfg, version)
	log.Info("starting aharecorder", "version", version, "commit", commit, "gateway", base.URL)

	gw, err := aha.New(base.URL, aha.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "failed to create gateway client")
	}

	disp, err := recorder.New(store, base.Backends, kinds,
		recorder.WithLogger(log),
		recorder.WithContext(ctx),
	)
	if err != nil {
		return errors.Wrap(err, "failed to set up backends")
	}

	// Verify all backend connections are healthy
	if err := healthCheck(ctx, disp); err != nil {
		disp.Close() //nolint:errcheck // reporting the health check failure instead
		return errors.Wrap(err, "health check failed")
	}
	log.Info("all health checks passed", "backends", disp.Names())

	p := poller.New(gw, disp, poller.Config{
		Username: base.Username,
		Password: base.Password,
		Interval: base.PollInterval(),
	}, poller.WithLogger(log))

	runErr := p.Run(ctx)

	if err := disp.Close(); err != nil {
		log.ErrorChain("failed to close backends", err)
	}
	if runErr != nil {
		return runErr
	}

	log.Info("aharecorder stopped")
	return nil
}

// healthCheck verifies every backend connection is usable before the first
// poll.
func healthCheck(ctx context.Context, disp *recorder.Dispatcher) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return disp.HealthCheck(ctx)
}
