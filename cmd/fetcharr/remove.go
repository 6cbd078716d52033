package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/download"
)

var removeCmd = &cobra.Command{
	Use:   "remove <download-id>",
	Short: "Remove a download from its client",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveCmd,
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().Bool("delete-data", false, "Also delete downloaded files")
}

func runRemoveCmd(cmd *cobra.Command, args []string) error {
	deleteData, _ := cmd.Flags().GetBool("delete-data")

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid download id %q", args[0])
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.Remove(cmd.Context(), id, deleteData); err != nil {
		if errors.Is(err, download.ErrUnsupported) {
			return fmt.Errorf("%w; remove the job in the client directly", err)
		}
		return err
	}
	printf(cmd, "Removed download %d\n", id)
	return nil
}
