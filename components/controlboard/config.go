package controlboard

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/fakemotor/nameservice"
)

// Defaults applied to zero config values.
const (
	DefaultServerName          = "/fakeyServer"
	DefaultClientName          = "/fakeyClient"
	DefaultAxes                = 3
	DefaultPeriod              = 10 * time.Millisecond
	DefaultLimit               = 180.0
	DefaultAddress             = "localhost:0"
	DefaultDiagnosticsInterval = 30 * time.Second
	DefaultRequestTimeout      = time.Second
	DefaultConnectTimeout      = 5 * time.Second
	DefaultCommandQueue        = 64
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Local is the base name of the server's endpoints.
	Local string `json:"local"`
	// Remote is accepted for symmetry with the client and ignored.
	Remote   string       `json:"remote,omitempty"`
	Axes     int          `json:"axes"`
	PeriodMs int          `json:"period_ms"`
	Limits   []AxisLimits `json:"limits"`
	// Address is the tcp address the gRPC server listens on.
	Address string `json:"address"`
	// DiagnosticsIntervalSec is how often counters are logged. Negative disables it.
	DiagnosticsIntervalSec int `json:"diagnostics_interval_sec"`
}

// Validate ensures all parts of the config are valid. Zero values are valid and mean "default".
func (cfg *ServerConfig) Validate(path string) error {
	if cfg.Local != "" {
		if err := nameservice.ValidateName(cfg.Local); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	if cfg.Axes < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("axes must be positive, got %d", cfg.Axes))
	}
	if cfg.PeriodMs < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("period_ms must be positive, got %d", cfg.PeriodMs))
	}
	axes := cfg.Axes
	if axes == 0 {
		axes = DefaultAxes
	}
	if len(cfg.Limits) != 0 && len(cfg.Limits) != axes {
		return utils.NewConfigValidationError(path,
			errors.Errorf("got %d limits for %d axes", len(cfg.Limits), axes))
	}
	for idx, lim := range cfg.Limits {
		if lim.Min > lim.Max {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.limits.%d", path, idx),
				errors.Errorf("min %v is greater than max %v", lim.Min, lim.Max))
		}
	}
	return nil
}

func (cfg ServerConfig) withDefaults() ServerConfig {
	if cfg.Local == "" {
		cfg.Local = DefaultServerName
	}
	if cfg.Axes == 0 {
		cfg.Axes = DefaultAxes
	}
	if cfg.PeriodMs == 0 {
		cfg.PeriodMs = int(DefaultPeriod / time.Millisecond)
	}
	if len(cfg.Limits) == 0 {
		cfg.Limits = make([]AxisLimits, cfg.Axes)
		for i := range cfg.Limits {
			cfg.Limits[i] = AxisLimits{Min: -DefaultLimit, Max: DefaultLimit}
		}
	}
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.DiagnosticsIntervalSec == 0 {
		cfg.DiagnosticsIntervalSec = int(DefaultDiagnosticsInterval / time.Second)
	}
	return cfg
}

func (cfg ServerConfig) period() time.Duration {
	return time.Duration(cfg.PeriodMs) * time.Millisecond
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Remote is the base name of the server's endpoints.
	Remote string `json:"remote"`
	// Local is the base name of the client's endpoints.
	Local            string `json:"local"`
	RequestTimeoutMs int    `json:"request_timeout_ms"`
	ConnectTimeoutMs int    `json:"connect_timeout_ms"`
	CommandQueue     int    `json:"command_queue"`
}

// Validate ensures all parts of the config are valid. Zero values are valid and mean "default".
func (cfg *ClientConfig) Validate(path string) error {
	for _, name := range []string{cfg.Remote, cfg.Local} {
		if name == "" {
			continue
		}
		if err := nameservice.ValidateName(name); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	if cfg.RequestTimeoutMs < 0 || cfg.ConnectTimeoutMs < 0 || cfg.CommandQueue < 0 {
		return utils.NewConfigValidationError(path, errors.New("timeouts and queue size must be positive"))
	}
	return nil
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.Remote == "" {
		cfg.Remote = DefaultServerName
	}
	if cfg.Local == "" {
		cfg.Local = DefaultClientName
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = int(DefaultRequestTimeout / time.Millisecond)
	}
	if cfg.ConnectTimeoutMs == 0 {
		cfg.ConnectTimeoutMs = int(DefaultConnectTimeout / time.Millisecond)
	}
	if cfg.CommandQueue == 0 {
		cfg.CommandQueue = DefaultCommandQueue
	}
	return cfg
}

func (cfg ClientConfig) requestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
}

func (cfg ClientConfig) connectTimeout() time.Duration {
	return time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
}
