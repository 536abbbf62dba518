package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("public-api", "", "")
	flags.String("api-token", "", "")
	flags.String("admin-addr", "127.0.0.1:3333", "")
	flags.StringSlice("account", nil, "")
	flags.Int("buffer", 16, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:3333", cfg.AdminAddr)
	require.Equal(t, "jsonl", cfg.Source)
	require.Equal(t, "-", cfg.In)
	require.Equal(t, 16, cfg.Buffer)
	require.Equal(t, 10*time.Second, cfg.SinkTimeout)
	require.Equal(t, "mongodb", cfg.Store.Driver)
	require.Equal(t, "AstroMarket", cfg.Store.Database)
	require.Equal(t, 5, cfg.Store.MaxRetries)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("PUBLIC_API", "https://api.example.com")
	t.Setenv("API_TOKEN", "legacy-secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.PublicAPI)
	require.Equal(t, "legacy-secret", cfg.APIToken)
	require.Equal(t, "mongodb://localhost:27017", cfg.Store.DSN)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("API_TOKEN", "legacy-secret")
	t.Setenv("CAPACITOR_API_TOKEN", "new-secret")
	t.Setenv("CAPACITOR_KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "new-secret", cfg.APIToken)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("API_TOKEN", "env-secret")

	flags := runFlags()
	require.NoError(t, flags.Parse([]string{"--api-token", "flag-secret", "--account", "nft.near,market.near", "--buffer", "4"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "flag-secret", cfg.APIToken)
	require.Equal(t, []string{"nft.near", "market.near"}, cfg.Accounts)
	require.Equal(t, 4, cfg.Buffer)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
public-api: https://api.example.com
source: kafka
kafka-brokers:
  - localhost:9092
kafka-topic: blocks
account:
  - nft.near
store-driver: postgres
store-dsn: postgres://localhost/capacitor
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "kafka", cfg.Source)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "blocks", cfg.Kafka.Topic)
	require.Equal(t, []string{"nft.near"}, cfg.Accounts)
	require.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		PublicAPI: "https://api.example.com",
		APIToken:  "secret",
		Source:    "jsonl",
		In:        "-",
		Store:     StoreConfig{Driver: "jsonl", DSN: "./data/allow.jsonl"},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"no public api": func(c *Config) { c.PublicAPI = "" },
		"no token":      func(c *Config) { c.APIToken = "" },
		"bad source":    func(c *Config) { c.Source = "rpc" },
		"kafka no topic": func(c *Config) {
			c.Source = "kafka"
			c.Kafka.Brokers = []string{"localhost:9092"}
		},
		"no store dsn":    func(c *Config) { c.Store.DSN = "" },
		"negative buffer": func(c *Config) { c.Buffer = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadDecodeAndAllow(t *testing.T) {
	t.Setenv("CAPACITOR_ACCOUNT", "nft.near")
	t.Setenv("CAPACITOR_STORE_DRIVER", "jsonl")
	t.Setenv("CAPACITOR_STORE_DSN", "./data/allow.jsonl")

	dec, err := LoadDecode("", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"nft.near"}, dec.Accounts)
	require.Equal(t, "./data/typed_events.jsonl", dec.Out)

	allow, err := LoadAllow("", nil)
	require.NoError(t, err)
	require.Equal(t, "jsonl", allow.Store.Driver)
	require.Equal(t, "./data/allow.jsonl", allow.Store.DSN)
}

func TestMongoURIOnlyFeedsMongoDriver(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	for _, driver := range []string{"postgres", "mysql", "jsonl"} {
		t.Run(driver, func(t *testing.T) {
			t.Setenv("CAPACITOR_STORE_DRIVER", driver)

			cfg, err := LoadAllow("", nil)
			require.NoError(t, err)
			require.Equal(t, driver, cfg.Store.Driver)
			require.Empty(t, cfg.Store.DSN)
			require.Error(t, cfg.Store.Validate())
		})
	}

	t.Run("explicit dsn wins", func(t *testing.T) {
		t.Setenv("CAPACITOR_STORE_DSN", "mongodb://other:27017")

		cfg, err := LoadAllow("", nil)
		require.NoError(t, err)
		require.Equal(t, "mongodb://other:27017", cfg.Store.DSN)
	})
}
