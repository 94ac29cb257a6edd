// Package config loads CLI settings from flags, ARITHSHARD_* environment
// variables and an optional arithshard.{yaml,toml,json} file, in that order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sherrors "github.com/tamirms/arithshard/errors"
)

type Config struct {
	Encoder  EncoderConfig `mapstructure:"encoder"`
	Run      RunConfig     `mapstructure:"run"`
	Output   OutputConfig  `mapstructure:"output"`
	LogLevel string        `mapstructure:"log_level"`
}

type EncoderConfig struct {
	Epsilon   float64 `mapstructure:"epsilon"`
	Precision int     `mapstructure:"precision"`
	Policy    string  `mapstructure:"policy"`
	Alphabet  string  `mapstructure:"alphabet"`
	Mode      string  `mapstructure:"mode"`
}

type RunConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
	CacheSize int `mapstructure:"cache_size"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Snapshot string `mapstructure:"snapshot"`
	DB       string `mapstructure:"db"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// Output formats accepted by Validate.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTOML = "toml"
)

func DefaultConfig() Config {
	return Config{
		Encoder: EncoderConfig{
			Epsilon:   1e-5,
			Precision: 64,
			Policy:    "uniform",
			Alphabet:  "",
			Mode:      "frozen",
		},
		Run: RunConfig{
			Workers:   1,
			BatchSize: 1024,
			CacheSize: 0,
		},
		Output: OutputConfig{
			Format:   FormatText,
			Snapshot: "",
			DB:       "",
		},
		LogLevel: "info",
	}
}

// keyFlags maps config keys to the flag names RegisterFlags defines.
var keyFlags = []struct{ key, flag string }{
	{"encoder.epsilon", "epsilon"},
	{"encoder.precision", "precision"},
	{"encoder.policy", "policy"},
	{"encoder.alphabet", "alphabet"},
	{"encoder.mode", "mode"},
	{"run.workers", "workers"},
	{"run.batch_size", "batch-size"},
	{"run.cache_size", "cache-size"},
	{"output.format", "format"},
	{"output.snapshot", "snapshot"},
	{"output.db", "db"},
	{"log_level", "log-level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.Float64("epsilon", defaults.Encoder.Epsilon, "Interval width at which encoding stops")
	fs.Int("precision", defaults.Encoder.Precision, "Float width used for encoding (32 or 64)")
	fs.String("policy", defaults.Encoder.Policy, "Initial model distribution (uniform|triangular)")
	fs.String("alphabet", defaults.Encoder.Alphabet, "Symbols in model order (default A-Z then a-z)")
	fs.String("mode", defaults.Encoder.Mode, "Model mode (frozen|seeded|adaptive)")
	fs.Int("workers", defaults.Run.Workers, "Parallel encode workers")
	fs.Int("batch-size", defaults.Run.BatchSize, "Lines handed to a worker at a time")
	fs.Int("cache-size", defaults.Run.CacheSize, "LRU cache entries for repeated strings (0 disables)")
	fs.String("format", defaults.Output.Format, "Report format (text|json|toml)")
	fs.String("snapshot", defaults.Output.Snapshot, "Write the shard index to this snapshot file")
	fs.String("db", defaults.Output.DB, "Record the run in this SQLite database")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for _, kf := range keyFlags {
			f := fs.Lookup(kf.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(kf.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", kf.flag, err)
			}
		}
	}

	v.SetEnvPrefix("ARITHSHARD")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("arithshard")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("encoder.epsilon", c.Encoder.Epsilon)
	v.SetDefault("encoder.precision", c.Encoder.Precision)
	v.SetDefault("encoder.policy", c.Encoder.Policy)
	v.SetDefault("encoder.alphabet", c.Encoder.Alphabet)
	v.SetDefault("encoder.mode", c.Encoder.Mode)
	v.SetDefault("run.workers", c.Run.Workers)
	v.SetDefault("run.batch_size", c.Run.BatchSize)
	v.SetDefault("run.cache_size", c.Run.CacheSize)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.snapshot", c.Output.Snapshot)
	v.SetDefault("output.db", c.Output.DB)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate checks the fields the library does not validate itself.
func (c Config) Validate() error {
	if c.Encoder.Precision != 32 && c.Encoder.Precision != 64 {
		return fmt.Errorf("%w: got %d", sherrors.ErrInvalidPrecision, c.Encoder.Precision)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatTOML:
	default:
		return fmt.Errorf("unknown output format %q (want text|json|toml)", c.Output.Format)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel converts a case-insensitive level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}
