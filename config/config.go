// Package config implements the §6 configuration surface: cacheMode,
// cacheMaxAgeMs, defaultCorsProxy, validateEvents, and the per-host
// authTokens registry. Grounded in the teacher's Configure/setup/setupLogger
// layering over github.com/spf13/viper (env prefix, config file, defaults),
// trimmed to this library's much smaller surface — no tendermint, chain
// version, or DHT seed-peer configuration applies here.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/make-os/grasp/gitlog"
)

// AppName namespaces the environment variable prefix and default data
// directory, the way the teacher's AppName does for `kit`.
const AppName = "grasp"

// AppEnvPrefix is used as the prefix for environment variables (GRASP_*).
const AppEnvPrefix = AppName

// CacheMode controls the in-memory cache discipline (§6).
type CacheMode string

const (
	CacheModeOff          CacheMode = "off"
	CacheModePerSession   CacheMode = "per-session"
	CacheModePerRepoBatch CacheMode = "per-repo-batch"
)

// AuthToken is one entry in the per-host token registry; matching is
// host-suffix aware (see Config.TokenFor).
type AuthToken struct {
	Host  string `mapstructure:"host"`
	Token string `mapstructure:"token"`
}

// Config is the full §6 configuration surface.
type Config struct {
	CacheMode        CacheMode   `mapstructure:"cacheMode"`
	CacheMaxAgeMs    int         `mapstructure:"cacheMaxAgeMs"`
	DefaultCorsProxy string      `mapstructure:"defaultCorsProxy"`
	ValidateEvents   bool        `mapstructure:"validateEvents"`
	AuthTokens       []AuthToken `mapstructure:"authTokens"`

	dataDir string
	log     gitlog.Logger
}

// DataDir returns the directory Config was loaded from / writes its config
// file to.
func (c *Config) DataDir() string { return c.dataDir }

// Log returns the configured logger, namespaced under "config".
func (c *Config) Log() gitlog.Logger { return c.log }

// TokenFor returns the first auth token whose host is a suffix match of
// host (e.g. a token for "example.test" matches "relay.example.test"), and
// whether one was found.
func (c *Config) TokenFor(host string) (string, bool) {
	host = strings.ToLower(host)
	for _, t := range c.AuthTokens {
		if strings.HasSuffix(host, strings.ToLower(t.Host)) {
			return t.Token, true
		}
	}
	return "", false
}

// defaults registers default viper values, mirroring the teacher's
// setDefaultViperConfig.
func defaults(v *viper.Viper) {
	v.SetDefault("cacheMode", string(CacheModePerSession))
	v.SetDefault("cacheMaxAgeMs", 60000)
	v.SetDefault("defaultCorsProxy", "")
	v.SetDefault("validateEvents", true)
	v.SetDefault("authTokens", []AuthToken{})
}

// Load reads layered configuration (environment, config file, defaults)
// into a Config, the way the teacher's Configure/setup does for AppConfig.
// dataDir is where the config file (grasp.yml) is read from and, if
// missing, written to; an empty dataDir expands to "~/.grasp".
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		expanded, err := homedir.Expand(filepath.Join("~", "."+AppName))
		if err != nil {
			return nil, errors.Wrap(err, "failed to expand default data directory")
		}
		dataDir = expanded
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	v := viper.New()
	v.SetEnvPrefix(AppEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.AddConfigPath(".")

	noConfigFile := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			noConfigFile = true
		} else {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg := &Config{dataDir: dataDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if noConfigFile {
		if err := v.WriteConfigAs(filepath.Join(dataDir, AppName+".yml")); err != nil {
			return nil, errors.Wrap(err, "failed to write default config file")
		}
	}

	cfg.log = gitlog.NewWithFileRotation(filepath.Join(dataDir, "logs", "main.log"), "config")

	return cfg, nil
}
