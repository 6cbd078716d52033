package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexers for an item and show the decision for every release",
	Args:  cobra.NoArgs,
	RunE:  runSearchCmd,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int64("item", 0, "Library item ID to search for")
	searchCmd.Flags().StringP("query", "q", "", "Search text (default: item title and year)")
	searchCmd.Flags().Bool("manual", true, "Treat as a manual search, which skips history and minimum age")
	searchCmd.Flags().Bool("grab", false, "Grab the best accepted release")
	searchCmd.Flags().Bool("rejected", false, "Also list rejected releases")
	_ = searchCmd.MarkFlagRequired("item")
}

func runSearchCmd(cmd *cobra.Command, _ []string) error {
	itemID, _ := cmd.Flags().GetInt64("item")
	query, _ := cmd.Flags().GetString("query")
	manual, _ := cmd.Flags().GetBool("manual")
	doGrab, _ := cmd.Flags().GetBool("grab")
	showRejected, _ := cmd.Flags().GetBool("rejected")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.library.Get(cmd.Context(), itemID)
	if err != nil {
		return err
	}
	profile, err := a.profileFor(item)
	if err != nil {
		return err
	}

	result, err := a.searcher.Search(cmd.Context(), a.cfg.Snapshot(time.Now()), search.Request{
		Items:   []*library.Item{item},
		Profile: profile,
		Query:   query,
		Manual:  manual,
	})
	if errors.Is(err, search.ErrNoIndexers) {
		return fmt.Errorf("%w; add an [indexers.<name>] section to the config", err)
	}
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		printf(cmd, "warning: %v\n", e)
	}

	evaluations := result.Evaluations
	if !showRejected {
		evaluations = result.Accepted()
	}
	if len(evaluations) == 0 {
		printf(cmd, "No acceptable releases for %q (%d found)\n", result.Query, len(result.Evaluations))
		return nil
	}

	rows := make([][]string, 0, len(evaluations))
	for i, e := range evaluations {
		rows = append(rows, searchRow(i+1, profile, e))
	}
	printf(cmd, "%s\n", renderTable(
		[]string{"#", "QUALITY", "SCORE", "SIZE", "AGE", "INDEXER", "DECISION", "RELEASE"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	))

	if !doGrab {
		return nil
	}
	best := result.Best()
	if best == nil {
		return fmt.Errorf("nothing to grab")
	}
	var searchCtx *decision.SearchContext
	if manual {
		searchCtx = &decision.SearchContext{ItemIDs: []int64{item.ID}, Query: result.Query}
	}
	grabbed, err := a.grabber.Process(cmd.Context(), a.cfg.Snapshot(time.Now()), best.Candidate, searchCtx)
	if err != nil {
		return err
	}
	if grabbed.Grab == nil {
		printf(cmd, "Not grabbed: %s\n", grabbed.Decision)
		return nil
	}
	printf(cmd, "Grabbed %s via %s (job %s)\n", best.Candidate.Release.Title, grabbed.Grab.Client, grabbed.Grab.ClientID)
	return nil
}

func searchRow(n int, profile *quality.Profile, e decision.Evaluation) []string {
	c := e.Candidate
	size, age := "-", "-"
	if c.Release.Size > 0 {
		size = humanize.IBytes(uint64(c.Release.Size))
	}
	if !c.Release.PublishDate.IsZero() {
		age = humanize.Time(c.Release.PublishDate)
	}
	verdict := "accepted"
	if !e.Decision.Accepted {
		verdict = e.Decision.Rule + ": " + e.Decision.Reason
	}
	return []string{
		strconv.Itoa(n),
		c.Quality.Quality.Name,
		strconv.Itoa(profile.FormatScore(c.CustomFormats)),
		size,
		age,
		c.Release.Indexer,
		truncate(verdict, 50),
		truncate(c.Release.Title, 60),
	}
}
