package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zappabad/tickerview/internal/ticker/client"
	"github.com/zappabad/tickerview/internal/viewer"
)

// EnvPrefix prefixes every environment variable, e.g. TICKERVIEW_BASE_URL.
const EnvPrefix = "TICKERVIEW"

// Config holds the full application configuration.
//
// Precedence (from lowest to highest):
//  1. Defaults set in Defaults().
//  2. Values from tickerview.yaml (current directory or $HOME/.config/tickerview).
//  3. TICKERVIEW_* environment variables.
//  4. Command line flags.
type Config struct {
	Client client.Config
	Viewer viewer.Config
	Log    LogConfig
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string
	Pretty bool
	// File receives log lines. Empty means stderr.
	File string
}

// Flags registers the command line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "ticker backend base URL")
	fs.String("api-key", "", "value of the X-API-KEY header")
	fs.StringP("exchange", "e", "", "initial exchange")
	fs.StringP("symbol", "s", "", "initial symbol")
	fs.Duration("timeout", 0, "per-request timeout (0 disables)")
	fs.Bool("strict-status", false, "treat non-2xx responses as failures")
	fs.Bool("discard-stale", false, "ignore responses older than the one displayed")
	fs.String("log-level", "", "debug|info|warn|error|off")
	fs.String("log-file", "", "write logs to this file")
	fs.String("config", "", "path to a config file")
}

// Defaults installs default values on v.
func Defaults(v *viper.Viper) {
	cc := client.DefaultConfig()
	vc := viewer.DefaultConfig()

	v.SetDefault("base_url", cc.BaseURL)
	v.SetDefault("api_key", cc.APIKey)
	v.SetDefault("timeout", cc.Timeout)
	v.SetDefault("strict_status", cc.StrictStatus)
	v.SetDefault("exchange", vc.Exchange)
	v.SetDefault("symbol", vc.Symbol)
	v.SetDefault("discard_stale", vc.DiscardStale)
	v.SetDefault("event_buffer", vc.EventBuffer)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("log_file", "")
}

// Load reads configuration from defaults, an optional config file, the
// environment and the flags in fs. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		// Flags use dashes, keys use underscores. Only explicitly set flags override.
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Changed {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Client: client.Config{
			BaseURL:      v.GetString("base_url"),
			APIKey:       v.GetString("api_key"),
			Timeout:      v.GetDuration("timeout"),
			StrictStatus: v.GetBool("strict_status"),
			MaxBodyBytes: client.DefaultConfig().MaxBodyBytes,
		},
		Viewer: viewer.Config{
			Exchange:     v.GetString("exchange"),
			Symbol:       v.GetString("symbol"),
			DiscardStale: v.GetBool("discard_stale"),
			EventBuffer:  v.GetInt("event_buffer"),
			DropEvents:   true,
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Pretty: v.GetBool("log_pretty"),
			File:   v.GetString("log_file"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName("tickerview")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "tickerview"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Client.BaseURL != "" {
		u, err := url.Parse(c.Client.BaseURL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("base_url: %w", err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Errorf("base_url: scheme must be http or https, got %q", u.Scheme))
		}
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative, got %s", c.Client.Timeout))
	}
	if c.Viewer.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("event_buffer: must not be negative, got %d", c.Viewer.EventBuffer))
	}
	return errors.Join(errs...)
}

// DefaultLogFile is where the TUI logs when no log file is configured.
func DefaultLogFile() string {
	return filepath.Join(os.TempDir(), "tickerview.log")
}