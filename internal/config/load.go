package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/treehouse/treehouse/internal/cryptoutil"
)

const (
	envPrefix = "TREEHOUSE"
	appName   = "treehouse"
)

// Load reads configuration from .env, a file (optionally encrypted), env vars, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		if isEncryptedPath(resolved) {
			vp.SetConfigType(configTypeFromPath(resolved))
			key := os.Getenv(envPrefix + "_CONFIG_KEY")
			if key == "" {
				key = vp.GetString("global.config_passphrase")
			}
			if key == "" {
				return nil, errors.New("config file is encrypted but TREEHOUSE_CONFIG_KEY is not set")
			}
			plain, decErr := decryptConfig(data, key)
			if decErr != nil {
				return nil, fmt.Errorf("decrypt config: %w", decErr)
			}
			if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			vp.SetConfigFile(resolved)
			if err := vp.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	if envPath := os.Getenv(envPrefix + "_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		appName + ".yaml",
		appName + ".yml",
		appName + ".toml",
		appName + ".json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, appName)
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
			if _, err := os.Stat(p + ".enc"); err == nil {
				return p + ".enc", nil
			}
		}
	}

	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(path, ".enc"), ".encrypted")
	switch filepath.Ext(trimmed) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "json")
	vp.SetDefault("global.operation_timeout", "5m")

	vp.SetDefault("schedule.open_hour", 11)
	vp.SetDefault("schedule.close_hour", 22)
	vp.SetDefault("schedule.window_offsets", []int{25, 55})
	vp.SetDefault("schedule.cutoff_minutes", 5)
	vp.SetDefault("schedule.timezone", "")

	vp.SetDefault("server.addr", ":5001")
	vp.SetDefault("server.read_timeout", "10s")
	vp.SetDefault("server.write_timeout", "10s")
	vp.SetDefault("server.shutdown_timeout", "15s")
	vp.SetDefault("server.tick_interval", "1s")
	vp.SetDefault("server.seed_sample_data", false)
	vp.SetDefault("server.allowed_origins", []string{"*"})

	vp.SetDefault("api.base_url", "http://localhost:5001")
	vp.SetDefault("api.timeout", "10s")
	vp.SetDefault("api.retry_count", 3)
	vp.SetDefault("api.retry_backoff", "2s")

	vp.SetDefault("hotspots.enabled", true)
	vp.SetDefault("hotspots.seed", 0)
	vp.SetDefault("hotspots.max_batch_size", 10)
	vp.SetDefault("hotspots.simulate_interval", "30s")

	vp.SetDefault("snapshot.interval", "0s")
	vp.SetDefault("snapshot.restore", "")
	vp.SetDefault("snapshot.compression", "zstd")
	vp.SetDefault("snapshot.encryption", false)
	vp.SetDefault("snapshot.encryption_key", "")
	vp.SetDefault("snapshot.retention.keep_last", 0)
	vp.SetDefault("snapshot.retention.keep_days", 0)

	vp.SetDefault("storage.backend", "local")
	vp.SetDefault("storage.local.path", "./snapshots")
	vp.SetDefault("storage.prefix", "treehouse")
	vp.SetDefault("storage.s3.endpoint", "")
	vp.SetDefault("storage.s3.region", "")
	vp.SetDefault("storage.s3.bucket", "")
	vp.SetDefault("storage.s3.access_key", "")
	vp.SetDefault("storage.s3.secret_key", "")
	vp.SetDefault("storage.s3.use_ssl", true)
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Global.OperationTimeout == 0 {
		cfg.Global.OperationTimeout = 5 * time.Minute
	}
	if len(cfg.Schedule.WindowOffsets) == 0 {
		cfg.Schedule.WindowOffsets = []int{25, 55}
	}
	if cfg.Server.TickInterval <= 0 {
		cfg.Server.TickInterval = time.Second
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.API.RetryBackoff == 0 {
		cfg.API.RetryBackoff = 2 * time.Second
	}
	if cfg.HotSpots.MaxBatchSize <= 0 {
		cfg.HotSpots.MaxBatchSize = 10
	}
	if cfg.HotSpots.SimulateInterval <= 0 {
		cfg.HotSpots.SimulateInterval = 30 * time.Second
	}
	cfg.Snapshot.Compression = strings.ToLower(cfg.Snapshot.Compression)
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
}

func expandEnv(cfg *Config) {
	cfg.Snapshot.EncryptionKey = os.ExpandEnv(cfg.Snapshot.EncryptionKey)
	cfg.Storage.S3.AccessKey = os.ExpandEnv(cfg.Storage.S3.AccessKey)
	cfg.Storage.S3.SecretKey = os.ExpandEnv(cfg.Storage.S3.SecretKey)
	cfg.Storage.S3.SessionToken = os.ExpandEnv(cfg.Storage.S3.SessionToken)
	cfg.Notifications = expandNotificationEnv(cfg.Notifications)
}

func expandNotificationEnv(cfg NotificationsConfig) NotificationsConfig {
	for i := range cfg.Webhooks {
		cfg.Webhooks[i].URL = os.ExpandEnv(cfg.Webhooks[i].URL)
	}
	for i := range cfg.Mattermost {
		cfg.Mattermost[i].URL = os.ExpandEnv(cfg.Mattermost[i].URL)
	}
	for i := range cfg.Matrix {
		cfg.Matrix[i].ServerURL = os.ExpandEnv(cfg.Matrix[i].ServerURL)
		cfg.Matrix[i].AccessToken = os.ExpandEnv(cfg.Matrix[i].AccessToken)
		cfg.Matrix[i].RoomID = os.ExpandEnv(cfg.Matrix[i].RoomID)
	}
	return cfg
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}
