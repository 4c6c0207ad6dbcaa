package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// Config keys.
const (
	cfgKeyStore        = "store"
	cfgKeyDataDir      = "data_dir"
	cfgKeyPollInterval = "poll_interval"
	cfgKeyVerbosity    = "verbosity"
	cfgKeyCookiePath   = "cookie.path"
	cfgKeyCookieDomain = "cookie.domain"
	cfgKeyCookieSecure = "cookie.secure"
	cfgKeyCookieSame   = "cookie.same_site"
	cfgKeyCookieDays   = "cookie.expires_days"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Store        string       `yaml:"store"`
	DataDir      string       `yaml:"data_dir,omitempty"`
	PollInterval string       `yaml:"poll_interval"`
	Verbosity    int          `yaml:"verbosity"`
	Cookie       cookieConfig `yaml:"cookie"`
}

type cookieConfig struct {
	Path        string `yaml:"path"`
	Domain      string `yaml:"domain,omitempty"`
	Secure      bool   `yaml:"secure"`
	SameSite    string `yaml:"same_site"`
	ExpiresDays int    `yaml:"expires_days"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Store:        types.StoreSQLite,
		DataDir:      dataDir,
		PollInterval: types.DefaultPollInterval.String(),
		Cookie: cookieConfig{
			Path:        types.DefaultCookiePath,
			SameSite:    string(types.SameSiteLax),
			ExpiresDays: types.DefaultCookieExpiresDays,
		},
	}
}

// settings is the resolved CLI configuration.
type settings struct {
	configDir    string
	dataDir      string
	store        string
	pollInterval time.Duration
	verbosity    int
	cookie       types.CookieOptions
}

// config returns the types.Config passed to Shelf.Attach.
func (s settings) config() types.Config {
	cfg := types.Config{Store: s.store, PollInterval: s.pollInterval}
	if s.store == types.StoreSQLite {
		cfg.DataDir = s.dataDir
	}
	return cfg
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfigFile("")); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyStore, types.StoreSQLite)
	v.SetDefault(cfgKeyPollInterval, types.DefaultPollInterval.String())
	v.SetDefault(cfgKeyCookiePath, types.DefaultCookiePath)
	v.SetDefault(cfgKeyCookieSame, string(types.SameSiteLax))
	v.SetDefault(cfgKeyCookieDays, types.DefaultCookieExpiresDays)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# shelf CLI configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// settingsFrom converts viper values into settings. Invalid values are
// user errors.
func settingsFrom(v *viper.Viper) (settings, error) {
	s := settings{
		store:     v.GetString(cfgKeyStore),
		verbosity: v.GetInt(cfgKeyVerbosity),
	}

	interval, err := time.ParseDuration(v.GetString(cfgKeyPollInterval))
	if err != nil {
		return s, userError("config %s: %v", cfgKeyPollInterval, err)
	}
	s.pollInterval = interval

	sameSite, err := types.ParseSameSite(v.GetString(cfgKeyCookieSame))
	if err != nil {
		return s, userError("config %s: %v", cfgKeyCookieSame, err)
	}
	s.cookie = types.CookieOptions{
		ExpiresDays: types.Days(v.GetInt(cfgKeyCookieDays)),
		Path:        v.GetString(cfgKeyCookiePath),
		Domain:      v.GetString(cfgKeyCookieDomain),
		Secure:      v.GetBool(cfgKeyCookieSecure),
		SameSite:    sameSite,
	}
	return s, nil
}
