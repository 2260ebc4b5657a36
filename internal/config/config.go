// Package config resolves application settings from flags, environment,
// an optional config file and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. ATRISK_MODELS.
const EnvPrefix = "ATRISK"

// Keys understood by Load.
const (
	KeyDB       = "db"
	KeyData     = "data"
	KeyModels   = "models"
	KeyLogLevel = "log_level"
	KeySeed     = "seed"
)

// Config holds resolved application settings.
type Config struct {
	// DBPath is empty when the platform default should be used.
	DBPath    string
	DataPath  string
	ModelsDir string
	LogLevel  string
	Seed      uint64
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyData, dataset.DefaultPath)
	v.SetDefault(KeyModels, artifact.DefaultDir)
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeySeed, 42)
}

// Load resolves settings with precedence flag > environment > config file >
// default. A .env file in the working directory is loaded into the
// environment first when present. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigName("atrisk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(dir + "/atrisk")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for _, key := range []string{KeyDB, KeyData, KeyModels, KeyLogLevel, KeySeed} {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := &Config{
		DBPath:    v.GetString(KeyDB),
		DataPath:  v.GetString(KeyData),
		ModelsDir: v.GetString(KeyModels),
		LogLevel:  v.GetString(KeyLogLevel),
		Seed:      v.GetUint64(KeySeed),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagName maps a config key to its command-line flag.
func flagName(key string) string {
	if key == KeyLogLevel {
		return "log-level"
	}
	return key
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return errors.New("config: data path is empty")
	}
	if c.ModelsDir == "" {
		return errors.New("config: models directory is empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
