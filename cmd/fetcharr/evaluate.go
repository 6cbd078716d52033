package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/decision"
	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
	"github.com/vmunix/fetcharr/pkg/release"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <release-title>",
	Short: "Run the decision rules against a release without grabbing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluateCmd,
}

var grabCmd = &cobra.Command{
	Use:   "grab <release-title>",
	Short: "Evaluate a release and send it to a download client if accepted",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrabCmd,
}

func init() {
	for _, cmd := range []*cobra.Command{evaluateCmd, grabCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().Int64Slice("item", nil, "Library item ID the release is for (repeatable)")
		cmd.Flags().String("url", "", "Download URL of the NZB or torrent")
		cmd.Flags().String("protocol", "usenet", "Release protocol (usenet, torrent)")
		cmd.Flags().String("size", "", "Release size, e.g. 4.2GB")
		cmd.Flags().String("indexer", "", "Indexer the release came from")
		cmd.Flags().Duration("age", 0, "Time since the release was published")
		cmd.Flags().Bool("manual", false, "Treat as a manual search, which skips history and minimum age")
		_ = cmd.MarkFlagRequired("item")
	}
}

func runEvaluateCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, search, err := candidateFromFlags(cmd, a, args[0])
	if err != nil {
		return err
	}
	d, err := a.pipeline.Run(cmd.Context(), a.cfg.Snapshot(time.Now()), c, search)
	if err != nil {
		return err
	}
	printCandidate(cmd, c)
	printf(cmd, "Decision: %s\n", d)
	return nil
}

func runGrabCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, search, err := candidateFromFlags(cmd, a, args[0])
	if err != nil {
		return err
	}
	if c.Release.DownloadURL == "" {
		return fmt.Errorf("--url is required to grab")
	}
	result, err := a.grabber.Process(cmd.Context(), a.cfg.Snapshot(time.Now()), c, search)
	if err != nil {
		return err
	}
	printCandidate(cmd, c)
	printf(cmd, "Decision: %s\n", result.Decision)
	if result.Grab != nil {
		printf(cmd, "Sent to %s (job %s)\n", result.Grab.Client, result.Grab.ClientID)
	}
	return nil
}

func candidateFromFlags(cmd *cobra.Command, a *app, title string) (*decision.Candidate, *decision.SearchContext, error) {
	itemIDs, _ := cmd.Flags().GetInt64Slice("item")
	url, _ := cmd.Flags().GetString("url")
	protocol, _ := cmd.Flags().GetString("protocol")
	size, _ := cmd.Flags().GetString("size")
	indexer, _ := cmd.Flags().GetString("indexer")
	age, _ := cmd.Flags().GetDuration("age")
	manual, _ := cmd.Flags().GetBool("manual")

	r := decision.Release{
		Title:       title,
		Indexer:     indexer,
		DownloadURL: url,
		Protocol:    release.ParseProtocol(protocol),
		PublishDate: time.Now().Add(-age),
	}
	if r.Protocol == release.ProtocolUnknown {
		return nil, nil, fmt.Errorf("unknown protocol %q", protocol)
	}
	if size != "" {
		n, err := humanize.ParseBytes(size)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid size %q: %w", size, err)
		}
		r.Size = int64(n)
	}

	items := make([]*library.Item, 0, len(itemIDs))
	var profile *quality.Profile
	for _, id := range itemIDs {
		item, err := a.library.Get(cmd.Context(), id)
		if err != nil {
			return nil, nil, err
		}
		p, err := a.profileFor(item)
		if err != nil {
			return nil, nil, err
		}
		if profile != nil && p != profile {
			return nil, nil, fmt.Errorf("items use different quality profiles (%s, %s)", profile.Name, p.Name)
		}
		profile = p
		items = append(items, item)
	}

	var search *decision.SearchContext
	if manual {
		search = &decision.SearchContext{ItemIDs: itemIDs, Query: title}
	}
	return decision.NewCandidate(r, items, profile, a.formats), search, nil
}

func printCandidate(cmd *cobra.Command, c *decision.Candidate) {
	printf(cmd, "Release:  %s\n", c.Release.Title)
	printf(cmd, "Quality:  %s\n", c.Quality)
	if parsed := describeParsed(c.Parsed); parsed != "" {
		printf(cmd, "Parsed:   %s\n", parsed)
	}
	if len(c.CustomFormats) > 0 {
		printf(cmd, "Formats:  %s (score %d)\n",
			strings.Join(quality.FormatNames(c.CustomFormats), ", "), c.Profile.FormatScore(c.CustomFormats))
	}
	if c.Release.Size > 0 {
		printf(cmd, "Size:     %s\n", humanize.IBytes(uint64(c.Release.Size)))
	}
}

// describeParsed summarizes the parser's view of a title for display.
func describeParsed(info release.Info) string {
	var parts []string
	if info.Title != "" {
		parts = append(parts, info.Title)
	}
	if info.Year > 0 {
		parts = append(parts, strconv.Itoa(info.Year))
	}
	if info.Codec != release.CodecUnknown {
		parts = append(parts, info.Codec.String())
	}
	if info.Group != "" {
		parts = append(parts, "group "+info.Group)
	}
	if info.Discography {
		parts = append(parts, "discography")
	}
	return strings.Join(parts, ", ")
}
