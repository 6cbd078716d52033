package main

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show grab and failure history",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int64("item", 0, "Only this library item")
	historyCmd.Flags().String("event", "", "Only this event type (grabbed, imported, failed, deleted, ignored)")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum records to show (0 for all)")
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	itemID, _ := cmd.Flags().GetInt64("item")
	event, _ := cmd.Flags().GetString("event")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f := history.Filter{Limit: limit}
	if itemID > 0 {
		f.ItemID = &itemID
	}
	if event != "" {
		et := history.EventType(event)
		f.EventType = &et
	}
	records, err := a.history.List(cmd.Context(), f)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printf(cmd, "No history\n")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			humanize.Time(r.Date),
			strconv.FormatInt(r.ItemID, 10),
			string(r.EventType),
			r.Quality.String(),
			r.DownloadClient,
			truncate(r.SourceTitle, 60),
		})
	}
	printf(cmd, "%s\n", renderTable(
		[]string{"WHEN", "ITEM", "EVENT", "QUALITY", "CLIENT", "RELEASE"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	return nil
}
