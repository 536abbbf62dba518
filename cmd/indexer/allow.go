package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fluxCapacitor/internal/allowlist"
	"fluxCapacitor/internal/config"
)

func newAllowCmd() *cobra.Command {
	allowCmd := &cobra.Command{
		Use:   "allow",
		Short: "Manage the persistent contract allow-list",
	}

	addCmd := &cobra.Command{
		Use:   "add <account-id>...",
		Short: "Allow-list contract accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAllowAdd,
	}
	addStoreFlags(addCmd)
	addLogFlags(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the allow-listed contract accounts",
		Args:  cobra.NoArgs,
		RunE:  runAllowList,
	}
	addStoreFlags(listCmd)
	addLogFlags(listCmd)

	allowCmd.AddCommand(addCmd, listCmd)
	return allowCmd
}

func openAllowList(cmd *cobra.Command) (*allowlist.Set, func(), *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAllow(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := openStore(cmd.Context(), cfg.Store, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	set := allowlist.New(store, logger)
	if err := set.Load(cmd.Context()); err != nil {
		store.Close()
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	cleanup := func() {
		store.Close()
		_ = logger.Sync()
	}
	return set, cleanup, logger, nil
}

func runAllowAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	set, cleanup, _, err := openAllowList(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, id := range args {
		added, err := set.Add(ctx, id)
		if err != nil {
			return err
		}
		status := "added"
		if !added {
			status = "already present"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, status)
	}
	return nil
}

func runAllowList(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	set, cleanup, logger, err := openAllowList(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ids := set.Snapshot()
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	logger.Debug("allow-list printed", zap.Int("accounts", len(ids)))
	return nil
}
