package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crazynala/axisprod/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Coverage CoverageConfig `yaml:"coverage" mapstructure:"coverage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch evaluation.
type BatchConfig struct {
	MaxConcurrentAssemblies int `yaml:"max_concurrent_assemblies" mapstructure:"max_concurrent_assemblies"`
}

// CoverageConfig holds the global coverage tolerance and the due-soon
// window. Assembly and product-type overrides come from the store.
type CoverageConfig struct {
	ToleranceAbs float64 `yaml:"tolerance_abs" mapstructure:"tolerance_abs"`
	TolerancePct float64 `yaml:"tolerance_pct" mapstructure:"tolerance_pct"`
	DueSoonDays  int     `yaml:"due_soon_days" mapstructure:"due_soon_days"`
}

// GlobalTolerance returns the configured global tolerance.
func (c CoverageConfig) GlobalTolerance() model.Tolerance {
	return model.Tolerance{Abs: c.ToleranceAbs, Pct: c.TolerancePct}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_assemblies", 8)
	v.SetDefault("coverage.tolerance_abs", 0)
	v.SetDefault("coverage.tolerance_pct", 0)
	v.SetDefault("coverage.due_soon_days", 7)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "evaluate", "export", "serve".
func (c *Config) Validate(mode string) error {
	var missing []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	}

	switch mode {
	case "evaluate", "export":
		requireDB()
	case "serve":
		requireDB()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.MaxConcurrentAssemblies < 1 || c.Batch.MaxConcurrentAssemblies > 64 {
		missing = append(missing, "batch.max_concurrent_assemblies must be between 1 and 64")
	}
	if c.Coverage.TolerancePct < 0 || c.Coverage.TolerancePct > 1 {
		missing = append(missing, "coverage.tolerance_pct must be between 0 and 1")
	}
	if c.Coverage.ToleranceAbs < 0 {
		missing = append(missing, "coverage.tolerance_abs must be >= 0")
	}
	if c.Coverage.DueSoonDays < 0 {
		missing = append(missing, "coverage.due_soon_days must be >= 0")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
