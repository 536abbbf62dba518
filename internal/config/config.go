package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CAPACITOR_LOG_LEVEL.
const EnvPrefix = "CAPACITOR"

// Environment names understood without the prefix, as used by existing
// deployments' .env files.
var legacyEnv = map[string]string{
	"public-api": "PUBLIC_API",
	"api-token":  "API_TOKEN",
}

// mongoURIEnv supplies the store DSN only when the driver is mongodb.
const mongoURIEnv = "MONGODB_URI"

// LogConfig controls logger construction.
type LogConfig struct {
	Level string
	File  string
}

// StoreConfig selects the persistent allow-list backend.
type StoreConfig struct {
	Driver       string
	DSN          string
	Database     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Config holds configuration for the run command.
type Config struct {
	PublicAPI   string
	APIToken    string
	AdminAddr   string
	Source      string
	In          string
	Kafka       KafkaConfig
	Buffer      int
	SinkTimeout time.Duration
	Accounts    []string
	Store       StoreConfig
	Log         LogConfig
}

// KafkaConfig locates the topic carrying streamer messages.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("admin-addr", "127.0.0.1:3333")
		v.SetDefault("source", "jsonl")
		v.SetDefault("in", "-")
		v.SetDefault("kafka-group", "flux-capacitor")
		v.SetDefault("kafka-start-offset", "earliest")
		v.SetDefault("buffer", 16)
		v.SetDefault("sink-timeout", 10*time.Second)
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		PublicAPI: v.GetString("public-api"),
		APIToken:  v.GetString("api-token"),
		AdminAddr: v.GetString("admin-addr"),
		Source:    v.GetString("source"),
		In:        v.GetString("in"),
		Kafka: KafkaConfig{
			Brokers:     getStringSlice(v, "kafka-brokers"),
			Topic:       v.GetString("kafka-topic"),
			GroupID:     v.GetString("kafka-group"),
			StartOffset: v.GetString("kafka-start-offset"),
		},
		Buffer:      v.GetInt("buffer"),
		SinkTimeout: v.GetDuration("sink-timeout"),
		Accounts:    getStringSlice(v, "account"),
		Store:       storeConfig(v),
		Log:         logConfig(v),
	}

	return cfg, nil
}

// Validate reports the first missing or inconsistent run setting.
func (c Config) Validate() error {
	if c.PublicAPI == "" {
		return fmt.Errorf("public api url is required")
	}
	if c.APIToken == "" {
		return fmt.Errorf("api token is required")
	}
	if c.Buffer < 0 {
		return fmt.Errorf("buffer must not be negative")
	}
	switch c.Source {
	case "jsonl":
		if c.In == "" {
			return fmt.Errorf("input path is required")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka brokers and topic are required")
		}
	default:
		return fmt.Errorf("unsupported source: %q", c.Source)
	}
	return c.Store.Validate()
}

// Validate checks the backend selection.
func (c StoreConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("store driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("store dsn is required for driver %s", c.Driver)
	}
	return nil
}

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In       string
	Out      string
	Errors   string
	Accounts []string
	Log      LogConfig
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/typed_events.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		Accounts: getStringSlice(v, "account"),
		Log:      logConfig(v),
	}, nil
}

// AllowConfig holds configuration for the allow subcommands.
type AllowConfig struct {
	Store StoreConfig
	Log   LogConfig
}

// LoadAllow merges config file, environment variables, and flags into AllowConfig.
func LoadAllow(cfgFile string, flags *pflag.FlagSet) (AllowConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return AllowConfig{}, err
	}
	return AllowConfig{Store: storeConfig(v), Log: logConfig(v)}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if err := v.BindEnv("mongodb-uri", mongoURIEnv); err != nil {
		return nil, fmt.Errorf("bind env mongodb-uri: %w", err)
	}

	v.SetDefault("store-driver", "mongodb")
	v.SetDefault("store-database", "AstroMarket")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func storeConfig(v *viper.Viper) StoreConfig {
	driver := v.GetString("store-driver")
	dsn := v.GetString("store-dsn")
	if dsn == "" && driver == "mongodb" {
		dsn = v.GetString("mongodb-uri")
	}
	return StoreConfig{
		Driver:       driver,
		DSN:          dsn,
		Database:     v.GetString("store-database"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

func logConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level: v.GetString("log-level"),
		File:  v.GetString("log-file"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
