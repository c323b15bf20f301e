// Package config loads momentum settings from an optional momentum.yaml,
// MOMENTUM_* environment variables and built-in defaults.
package config

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MOMENTUM_STORAGE_DRIVER -> storage.driver.
const EnvPrefix = "MOMENTUM"

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

type S3Cfg struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
	UsePathStyle bool
}

// Storage selects and configures the persistence gateway backend.
type Storage struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	FSRoot      string
	Redis       RedisCfg
	S3          S3Cfg
}

type LogCfg struct {
	Level string
}

type LimitsCfg struct {
	Tier string
}

type GuardCfg struct {
	Cooldown time.Duration
}

type ProgressCfg struct {
	Debounce time.Duration
}

type Config struct {
	Storage  Storage
	Log      LogCfg
	Limits   LimitsCfg
	Guard    GuardCfg
	Progress ProgressCfg
}

// Load reads configuration. A missing config file is not an error; ${ENV}
// references inside the file are expanded before parsing.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given file when path is set.
func LoadFrom(path string) (*Config, error) {
	base := newViper()
	if path != "" {
		base.SetConfigFile(path)
	} else {
		base.SetConfigName("momentum")
		base.SetConfigType("yaml")
		base.AddConfigPath("./configs")
		base.AddConfigPath(".")
	}

	if err := base.ReadInConfig(); err != nil {
		if path != "" {
			return nil, err
		}
		cfg := new(Config)
		if err := base.Unmarshal(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	raw, err := os.ReadFile(base.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(raw)))); err != nil {
		return nil, err
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlitePath", "momentum.db")
	v.SetDefault("storage.postgresDSN", "")
	v.SetDefault("storage.fsRoot", "./momentum-data")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.poolSize", 10)
	v.SetDefault("storage.redis.prefix", "momentum:")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.accessKey", "")
	v.SetDefault("storage.s3.secretKey", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.usePathStyle", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("limits.tier", "free")
	v.SetDefault("guard.cooldown", 750*time.Millisecond)
	v.SetDefault("progress.debounce", 2*time.Second)
}
