package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"fluxCapacitor/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "NEAR marketplace event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Consume blocks and forward marketplace events",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("public-api", "", "marketplace API base URL (env PUBLIC_API)")
	runCmd.Flags().String("api-token", "", "token sent as Signature and required by the admin endpoint (env API_TOKEN)")
	runCmd.Flags().String("admin-addr", "127.0.0.1:3333", "admin HTTP listen address")
	runCmd.Flags().String("source", "jsonl", "block source (jsonl, kafka)")
	runCmd.Flags().String("in", "-", "streamer messages JSONL path, - for stdin")
	runCmd.Flags().StringSlice("kafka-brokers", nil, "kafka brokers (comma-separated)")
	runCmd.Flags().String("kafka-topic", "", "kafka topic with streamer messages")
	runCmd.Flags().String("kafka-group", "flux-capacitor", "kafka consumer group")
	runCmd.Flags().String("kafka-start-offset", "earliest", "offset for a new consumer group (earliest, latest)")
	runCmd.Flags().Int("buffer", 16, "block channel capacity")
	runCmd.Flags().Duration("sink-timeout", 10*time.Second, "marketplace API request timeout")
	runCmd.Flags().StringSlice("account", nil, "allow-listed contract accounts added on startup (comma-separated)")
	addStoreFlags(runCmd)
	addLogFlags(runCmd)

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode streamer messages into typed events without forwarding",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input streamer messages JSONL, - for stdin")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().StringSlice("account", nil, "allow-listed contract accounts (comma-separated)")
	addLogFlags(decodeCmd)

	root.AddCommand(decodeCmd)
	root.AddCommand(newAllowCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store-driver", "mongodb", "allow-list store (mongodb, postgres, mysql, jsonl)")
	cmd.Flags().String("store-dsn", "", "allow-list store DSN, or file path for jsonl (env MONGODB_URI when the driver is mongodb)")
	cmd.Flags().String("store-database", "AstroMarket", "database name for mongodb")
	cmd.Flags().Int("max-retries", 5, "store connection attempts after the first")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial store retry backoff")
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "also write logs to this file, rotated")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevel()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), rotating, zcfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
