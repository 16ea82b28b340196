// Package config provides orchestrator configuration and the execution planner.
//
// CoreConfig is loaded with viper from defaults, an optional YAML file and
// CHIEF_* environment variables. The routing table that drives the planner is
// plain configuration too and can be replaced by a YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CHIEF_AGENT_TIMEOUT.
const EnvPrefix = "CHIEF"

// PlatformLimits maps capability name to field name to maximum length.
type PlatformLimits map[string]map[string]int

// Limit returns the configured maximum for capability/field.
func (p PlatformLimits) Limit(capability, field string) (int, bool) {
	fields, ok := p[capability]
	if !ok {
		return 0, false
	}
	max, ok := fields[field]
	return max, ok
}

// DefaultPlatformLimits returns the built-in per-capability size ceilings.
func DefaultPlatformLimits() PlatformLimits {
	return PlatformLimits{
		"linkedin":         {"content": 3000},
		"gmail":            {"subject": 255},
		"outlook_mail":     {"subject": 255},
		"google_calendar":  {"title": 1024},
		"outlook_calendar": {"title": 255},
		"task_manager":     {"title": 500},
	}
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"` // text or json
}

// ServerConfig holds the listen addresses of the host transports.
type ServerConfig struct {
	GRPCAddr    string  `mapstructure:"grpc_addr" json:"grpc_addr"`
	MetricsAddr string  `mapstructure:"metrics_addr" json:"metrics_addr"`
	RateLimit   float64 `mapstructure:"rate_limit" json:"rate_limit"` // requests per second per user, 0 disables
	RateBurst   int     `mapstructure:"rate_burst" json:"rate_burst"`
}

// NATSConfig configures the NATS request/reply bridge.
type NATSConfig struct {
	URL            string        `mapstructure:"url" json:"url"` // empty disables the bridge
	Subject        string        `mapstructure:"subject" json:"subject"`
	QueueGroup     string        `mapstructure:"queue_group" json:"queue_group"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // empty disables export
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// CoreConfig holds orchestrator configuration.
type CoreConfig struct {
	// AgentTimeout bounds a single capability agent call. Zero disables the bound.
	AgentTimeout time.Duration `mapstructure:"agent_timeout" json:"agent_timeout"`
	// MaxParallelAgents caps concurrent agents in a parallel plan. Zero means unlimited.
	MaxParallelAgents int `mapstructure:"max_parallel_agents" json:"max_parallel_agents"`
	// RoutingFile optionally replaces the built-in routing table.
	RoutingFile string `mapstructure:"routing_file" json:"routing_file"`

	PlatformLimits PlatformLimits `mapstructure:"platform_limits" json:"platform_limits"`
	Logging        LoggingConfig  `mapstructure:"logging" json:"logging"`
	Server         ServerConfig   `mapstructure:"server" json:"server"`
	NATS           NATSConfig     `mapstructure:"nats" json:"nats"`
	Tracing        TracingConfig  `mapstructure:"tracing" json:"tracing"`
}

// DefaultCoreConfig returns a CoreConfig with default values.
func DefaultCoreConfig() *CoreConfig {
	return &CoreConfig{
		AgentTimeout:      30 * time.Second,
		MaxParallelAgents: 8,
		PlatformLimits:    DefaultPlatformLimits(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			GRPCAddr:    ":50051",
			MetricsAddr: ":9090",
			RateLimit:   5,
			RateBurst:   10,
		},
		NATS: NATSConfig{
			Subject:        "chiefofstaff.submit",
			QueueGroup:     "chiefofstaff",
			RequestTimeout: 60 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "chief-of-staff",
		},
	}
}

// Validate checks the configuration for values the orchestrator cannot run with.
func (c *CoreConfig) Validate() error {
	var errs []error
	if c.AgentTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent_timeout must not be negative, got %s", c.AgentTimeout))
	}
	if c.MaxParallelAgents < 0 {
		errs = append(errs, fmt.Errorf("max_parallel_agents must not be negative, got %d", c.MaxParallelAgents))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be at least 1 when rate limiting, got %d", c.Server.RateBurst))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required when nats.url is set"))
	}
	for capability, fields := range c.PlatformLimits {
		for field, max := range fields {
			if max <= 0 {
				errs = append(errs, fmt.Errorf("platform_limits.%s.%s must be positive, got %d", capability, field, max))
			}
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration from defaults, the optional YAML file at path and
// the environment, in increasing order of precedence.
func Load(path string) (*CoreConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultCoreConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &CoreConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *CoreConfig) {
	v.SetDefault("agent_timeout", d.AgentTimeout)
	v.SetDefault("max_parallel_agents", d.MaxParallelAgents)
	v.SetDefault("routing_file", d.RoutingFile)

	limits := make(map[string]any, len(d.PlatformLimits))
	for capability, fields := range d.PlatformLimits {
		inner := make(map[string]any, len(fields))
		for field, max := range fields {
			inner[field] = max
		}
		limits[capability] = inner
	}
	v.SetDefault("platform_limits", limits)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)

	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject", d.NATS.Subject)
	v.SetDefault("nats.queue_group", d.NATS.QueueGroup)
	v.SetDefault("nats.request_timeout", d.NATS.RequestTimeout)

	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}
