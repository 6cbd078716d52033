package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List quality profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesCmd,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	profiles, err := cfg.BuildProfiles()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := profiles[name]
		label := name
		if name == cfg.Quality.Default {
			label += " (default)"
		}
		rows = append(rows, []string{
			label,
			strings.Join(p.AllowedNames(), ", "),
			p.Cutoff.Name,
			strconv.FormatBool(p.UpgradeAllowed),
			strconv.Itoa(p.MinFormatScore),
		})
	}
	printf(cmd, "%s\n", renderTable(
		[]string{"NAME", "QUALITIES", "CUTOFF", "UPGRADES", "MIN SCORE"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}
