package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	NFTAddress         string
	MarketplaceAddress string
	PGDSN              string
	WindowSize         uint64
	PollInterval       time.Duration
	ReconnectDelay     time.Duration
	MaxReconnects      int
	IPFSGateway        string
	Broadcast          string
	ListenAddr         string
	RedisAddr          string
	RedisChannel       string
	LogLevel           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("window-size", uint64(100))
	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("reconnect-delay", 5*time.Second)
	v.SetDefault("max-reconnects", 5)
	v.SetDefault("ipfs-gateway", "https://ipfs.io")
	v.SetDefault("broadcast", "ws")
	v.SetDefault("listen", ":8090")
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-channel", "marketscope:events")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		NFTAddress:         v.GetString("nft-address"),
		MarketplaceAddress: v.GetString("market-address"),
		PGDSN:              v.GetString("pg-dsn"),
		WindowSize:         v.GetUint64("window-size"),
		PollInterval:       v.GetDuration("poll-interval"),
		ReconnectDelay:     v.GetDuration("reconnect-delay"),
		MaxReconnects:      v.GetInt("max-reconnects"),
		IPFSGateway:        v.GetString("ipfs-gateway"),
		Broadcast:          v.GetString("broadcast"),
		ListenAddr:         v.GetString("listen"),
		RedisAddr:          v.GetString("redis-addr"),
		RedisChannel:       v.GetString("redis-channel"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, nil
}
