// Package config loads vmbench settings from .env, a YAML file, VMBENCH_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feather-lang/vmbench/harness"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "VMBENCH"

// Keys.
const (
	KeyWarmUp          = "warm_up"
	KeySamples         = "samples"
	KeyMeasurementTime = "measurement_time"
	KeyFilter          = "filter"
	KeyPlan            = "plan"
	KeyFormat          = "format"
	KeyChart           = "chart"
	KeyTextfile        = "textfile"
	KeyBaselineDir     = "baseline_dir"
	KeyThreshold       = "threshold"
	KeyVerbose         = "verbose"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Options     harness.Options
	Plans       []string
	Format      string
	Chart       string
	Textfile    string
	BaselineDir string
	Threshold   float64
	Verbose     bool
}

// Load reads .env, then cfgFile (or ./vmbench.yaml when empty), into v.
// A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("vmbench")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := harness.DefaultOptions()
	v.SetDefault(KeyWarmUp, defaults.WarmUp)
	v.SetDefault(KeySamples, defaults.Samples)
	v.SetDefault(KeyMeasurementTime, defaults.MeasurementTime)
	v.SetDefault(KeyFilter, "")
	v.SetDefault(KeyPlan, []string{})
	v.SetDefault(KeyFormat, FormatText)
	v.SetDefault(KeyBaselineDir, ".vmbench")
	v.SetDefault(KeyThreshold, 5.0)
	v.SetDefault(KeyVerbose, false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Decode builds a Config from v and validates it.
func Decode(v *viper.Viper) (Config, error) {
	cfg := Config{
		Options: harness.Options{
			WarmUp:          v.GetDuration(KeyWarmUp),
			Samples:         v.GetInt(KeySamples),
			MeasurementTime: v.GetDuration(KeyMeasurementTime),
			Filter:          v.GetString(KeyFilter),
		},
		Plans:       v.GetStringSlice(KeyPlan),
		Format:      strings.ToLower(v.GetString(KeyFormat)),
		Chart:       v.GetString(KeyChart),
		Textfile:    v.GetString(KeyTextfile),
		BaselineDir: v.GetString(KeyBaselineDir),
		Threshold:   v.GetFloat64(KeyThreshold),
		Verbose:     v.GetBool(KeyVerbose),
	}
	return cfg, cfg.Validate()
}

// Validate returns every invalid setting in one error.
func (c Config) Validate() error {
	var errs []error
	if err := c.Options.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Format {
	case FormatText, FormatMarkdown, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("format must be one of text, markdown, json, got %q", c.Format))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must not be negative, got %v", c.Threshold))
	}
	return errors.Join(errs...)
}

// MeasurementBudget estimates the wall time of measuring n benchmarks,
// excluding setup.
func (c Config) MeasurementBudget(n int) time.Duration {
	return time.Duration(n) * (c.Options.WarmUp + c.Options.MeasurementTime)
}
