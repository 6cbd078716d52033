package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll download clients and keep tracked downloads in sync",
	Args:  cobra.NoArgs,
	RunE:  runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lockFile := a.cfg.Server.LockFile
	if lockFile == "" {
		lockFile = a.cfg.Database.Path + ".lock"
	}

	clients := a.manager.Registry().Clients()
	names := make([]string, 0, len(clients))
	for _, c := range clients {
		names = append(names, c.Name())
	}
	a.log.Info("fetcharr starting", "version", version, "database", a.cfg.Database.Path,
		"clients", names, "poll_interval", a.cfg.Server.PollInterval)

	runner := server.NewRunner(server.Config{LockFile: lockFile}, a.log, server.Task{
		Name:     "refresh-downloads",
		Interval: a.cfg.Server.PollInterval,
		Run: func(ctx context.Context) error {
			return a.manager.Refresh(ctx)
		},
	})
	return runner.Run(ctx)
}
