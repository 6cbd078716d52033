package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/fetcharr/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := config.DefaultPath()
	if len(args) == 1 {
		path = args[0]
	}

	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}
	printf(cmd, "Wrote %s\n", path)
	printf(cmd, "Set SABNZBD_API_KEY or edit [downloaders] before running 'fetcharr serve'.\n")
	return nil
}
