package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/GharaibehR/Chief-of-Staff/commbus"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/agents"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/capabilities"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// Version is the release of the chief binary.
const Version = "1.0.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "chief",
		Short: "Chief-of-Staff request orchestrator",
		Long: `Chief-of-Staff turns a natural-language request into a plan of
capability agents (calendar, mail, social, tasks, content), runs them
sequentially or in parallel, checks their output with the quality gate
and composes a single result.

Configuration is read from defaults, the optional --config YAML file and
CHIEF_* environment variables, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override logging.format (text, json)")

	root.AddCommand(
		newServeCmd(flags),
		newSubmitCmd(flags),
		newClassifyCmd(flags),
		newRoutesCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chief version %s\n", Version)
		},
	}
}

// =============================================================================
// shared setup
// =============================================================================

// load reads the configuration and applies the logging overrides.
func (f *globalFlags) load() (*config.CoreConfig, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.CoreConfig, out io.Writer) (logging.Logger, error) {
	logger, err := logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return logger, nil
}

// runtimeDeps is an orchestrator with its bus and the local agents registered.
type runtimeDeps struct {
	orch    *kernel.Orchestrator
	bus     *commbus.InMemoryCommBus
	breaker *commbus.CircuitBreakerMiddleware
}

func buildOrchestrator(cfg *config.CoreConfig, logger logging.Logger) (*runtimeDeps, error) {
	bus := commbus.NewInMemoryCommBus(0, logger)
	// Only events are guarded: their failures come from the NATS forwarder.
	breaker := commbus.NewCircuitBreakerMiddleware(5, 30*time.Second,
		[]string{"ListAgents", "ClassifyText", "CancelRequest"}, logger)
	bus.AddMiddleware(commbus.NewLoggingMiddleware(logger))
	bus.AddMiddleware(breaker)

	orch, err := kernel.NewFromConfig(cfg, agents.NewRegistry(), bus, logger)
	if err != nil {
		return nil, err
	}
	if err := capabilities.RegisterAll(orch, capabilities.Options{}); err != nil {
		return nil, err
	}
	if err := orch.RegisterBusHandlers(); err != nil {
		return nil, err
	}
	return &runtimeDeps{orch: orch, bus: bus, breaker: breaker}, nil
}
