package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/download"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show tracked downloads with live client status",
	Args:  cobra.NoArgs,
	RunE:  runQueueCmd,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().BoolP("all", "a", false, "Include finished downloads (completed, failed, removed)")
	queueCmd.Flags().StringP("state", "s", "", "Filter by state (queued, downloading, completed, failed, removed)")
}

func runQueueCmd(cmd *cobra.Command, _ []string) error {
	showAll, _ := cmd.Flags().GetBool("all")
	stateFilter, _ := cmd.Flags().GetString("state")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []*download.QueueEntry
	if showAll {
		downloads, err := a.store.List(cmd.Context(), download.Filter{})
		if err != nil {
			return fmt.Errorf("list downloads: %w", err)
		}
		for _, d := range downloads {
			entries = append(entries, &download.QueueEntry{Download: d})
		}
	} else {
		entries, err = a.manager.Queue(cmd.Context())
		if err != nil {
			return fmt.Errorf("queue: %w", err)
		}
	}

	if stateFilter != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.EqualFold(string(e.Download.Status), stateFilter) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		if showAll {
			printf(cmd, "No downloads\n")
		} else {
			printf(cmd, "No active downloads\n")
		}
		return nil
	}

	colorize := shouldColorize(cmd.OutOrStdout())
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, queueRow(e, colorize))
	}
	printf(cmd, "%s\n", renderTable(
		[]string{"ID", "ITEM", "CLIENT", "STATE", "PROGRESS", "SIZE", "RELEASE"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func queueRow(e *download.QueueEntry, colorize bool) []string {
	d := e.Download
	progress, size := "-", "-"
	if e.Live != nil {
		progress = fmt.Sprintf("%.0f%%", e.Live.Progress)
		if e.Live.Size > 0 {
			size = humanize.IBytes(uint64(e.Live.Size))
		}
	} else if d.Status == download.StatusCompleted {
		progress = "100%"
	}
	return []string{
		strconv.FormatInt(d.ID, 10),
		strconv.FormatInt(d.ItemID, 10),
		d.Client,
		statusLabel(d.Status, colorize),
		progress,
		size,
		truncate(d.ReleaseName, 60),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
