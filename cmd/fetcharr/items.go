package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/library"
	"github.com/vmunix/fetcharr/internal/quality"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage wanted items",
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a wanted item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsAddCmd,
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wanted items",
	Args:  cobra.NoArgs,
	RunE:  runItemsListCmd,
}

var itemsRemoveCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove an item with its downloads and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsRemoveCmd,
}

var itemsFileCmd = &cobra.Command{
	Use:   "file <item-id> <quality>",
	Short: "Record the quality of the file on disk for an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemsFileCmd,
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemsAddCmd, itemsListCmd, itemsFileCmd, itemsRemoveCmd)

	itemsAddCmd.Flags().Int("year", 0, "Release year")
	itemsAddCmd.Flags().String("profile", "", "Quality profile (default from config)")

	itemsListCmd.Flags().Bool("missing", false, "Only items without a file")

	itemsFileCmd.Flags().Int("revision", 1, "Revision version (2 for PROPER/REPACK)")
	itemsFileCmd.Flags().StringSlice("formats", nil, "Custom formats the file matches")
}

func runItemsAddCmd(cmd *cobra.Command, args []string) error {
	year, _ := cmd.Flags().GetInt("year")
	profile, _ := cmd.Flags().GetString("profile")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if profile == "" {
		profile = a.cfg.Quality.Default
	}
	if _, ok := a.profiles[profile]; !ok {
		return fmt.Errorf("unknown quality profile %q", profile)
	}

	tx, err := a.library.Begin(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	title := args[0]
	existing, _, err := tx.List(cmd.Context(), library.Filter{Title: &title, Year: &year, Limit: 1})
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%s already exists as item %d", describeItem(existing[0]), existing[0].ID)
	}

	item := &library.Item{Title: title, Year: year, QualityProfile: profile}
	if err := tx.Add(cmd.Context(), item); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	printf(cmd, "Added item %d: %s\n", item.ID, describeItem(item))
	return nil
}

func runItemsListCmd(cmd *cobra.Command, _ []string) error {
	missing, _ := cmd.Flags().GetBool("missing")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	items, total, err := a.library.List(cmd.Context(), library.Filter{Missing: missing})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if total == 0 {
		printf(cmd, "No items\n")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		onDisk := "-"
		if item.HasFile() {
			onDisk = item.File.Quality.String()
			if len(item.File.CustomFormats) > 0 {
				onDisk += " [" + strings.Join(item.File.CustomFormats, ", ") + "]"
			}
		}
		rows = append(rows, []string{strconv.FormatInt(item.ID, 10), describeItem(item), item.QualityProfile, onDisk})
	}
	printf(cmd, "%s\n", renderTable([]string{"ID", "TITLE", "PROFILE", "ON DISK"}, rows, []columnAlignment{alignRight}))
	return nil
}

func runItemsFileCmd(cmd *cobra.Command, args []string) error {
	revision, _ := cmd.Flags().GetInt("revision")
	formats, _ := cmd.Flags().GetStringSlice("formats")

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}
	q, ok := quality.FindByName(args[1])
	if !ok {
		return fmt.Errorf("unknown quality %q", args[1])
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tx, err := a.library.Begin(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	item, err := tx.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	item.File = &library.File{
		Quality:       quality.Model{Quality: q, Revision: quality.Revision{Version: max(revision, 1)}},
		CustomFormats: formats,
	}
	if err := tx.Update(cmd.Context(), item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	printf(cmd, "Item %d: %s on disk\n", item.ID, item.File.Quality)
	return nil
}

func runItemsRemoveCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.library.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if err := a.library.Delete(cmd.Context(), id); err != nil {
		return err
	}
	printf(cmd, "Removed item %d: %s\n", id, describeItem(item))
	return nil
}

func describeItem(item *library.Item) string {
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	return item.Title
}
