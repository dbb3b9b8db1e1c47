package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Alexander-D-Karpov/redditmusic/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	API struct {
		BaseURL     string `mapstructure:"base_url"`
		AccessToken string `mapstructure:"access_token"`
		ClientID    string `mapstructure:"client_id"`
		RateLimit   struct {
			RequestsPerSecond float64 `mapstructure:"requests_per_second"`
			BurstSize         int     `mapstructure:"burst_size"`
		} `mapstructure:"rate_limit"`
		Timeout   int    `mapstructure:"timeout"`
		Retries   int    `mapstructure:"retries"`
		UserAgent string `mapstructure:"user_agent"`
		PageLimit int    `mapstructure:"page_limit"`
	} `mapstructure:"api"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
		EnableWAL    bool   `mapstructure:"enable_wal"`
	} `mapstructure:"storage"`

	Player struct {
		DefaultVolume      int      `mapstructure:"default_volume"`
		DefaultSubreddits  []string `mapstructure:"default_subreddits"`
		DefaultSort        string   `mapstructure:"default_sort"`
		DefaultTopPeriod   string   `mapstructure:"default_top_period"`
		PollIntervalMs     int      `mapstructure:"poll_interval_ms"`
		RetryAttempts      int      `mapstructure:"retry_attempts"`
		RetryBackoffMs     int      `mapstructure:"retry_backoff_ms"`
		MountPoint         string   `mapstructure:"mount_point"`
		AudioSampleRate    int      `mapstructure:"audio_sample_rate"`
		AudioMaxDownloadMB int      `mapstructure:"audio_max_download_mb"`
	} `mapstructure:"player"`

	Search struct {
		CatalogPath    string `mapstructure:"catalog_path"`
		MaxResults     int    `mapstructure:"max_results"`
		MinQueryLength int    `mapstructure:"min_query_length"`
	} `mapstructure:"search"`

	Logging struct {
		File  string `mapstructure:"file"`
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"logging"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(configDir)
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("RMP")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present. It does not
// touch the filesystem.
func Default() *Config {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return &Config{}
	}
	return &cfg
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("api.base_url", "https://www.reddit.com")
	viper.SetDefault("api.access_token", "")
	viper.SetDefault("api.client_id", "")
	viper.SetDefault("api.rate_limit.requests_per_second", 1.0)
	viper.SetDefault("api.rate_limit.burst_size", 5)
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.retries", 3)
	viper.SetDefault("api.user_agent", "desktop:redditmusic:v0.6.14 (by /u/musicplayer)")
	viper.SetDefault("api.page_limit", 100)

	dataDir, _ := platform.GetDataDir()

	viper.SetDefault("storage.database_path", filepath.Join(dataDir, "redditmusic.db"))
	viper.SetDefault("storage.enable_wal", true)

	viper.SetDefault("player.default_volume", 100)
	viper.SetDefault("player.default_subreddits", []string{"listentothis"})
	viper.SetDefault("player.default_sort", "hot")
	viper.SetDefault("player.default_top_period", "week")
	viper.SetDefault("player.poll_interval_ms", 100)
	viper.SetDefault("player.retry_attempts", 3)
	viper.SetDefault("player.retry_backoff_ms", 500)
	viper.SetDefault("player.mount_point", "player")
	viper.SetDefault("player.audio_sample_rate", 44100)
	viper.SetDefault("player.audio_max_download_mb", 64)

	viper.SetDefault("search.catalog_path", platform.CatalogPath())
	viper.SetDefault("search.max_results", 50)
	viper.SetDefault("search.min_query_length", 3)

	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.json", false)
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{
		filepath.Dir(cfg.Storage.DatabasePath),
	}
	if cfg.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(cfg.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) Save() error {
	configDir, err := platform.GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	configFile := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configFile)
}
