package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	snapshotsKind  string
	snapshotsLimit int
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List cached board fetches",
	Long: `List the work item snapshots saved each time a board was fetched from
Launchpad. The newest snapshot of a board is used with --offline or when
Launchpad cannot be reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotsRun(snapshotsKind, snapshotsLimit)
	},
}

func init() {
	snapshotsCmd.Flags().StringVar(&snapshotsKind, "kind", "", "Only show milestone or person snapshots")
	snapshotsCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "Maximum number of snapshots to show")
	rootCmd.AddCommand(snapshotsCmd)
}

func snapshotsRun(kind string, limit int) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	infos, err := s.ListSnapshots(cmdContext(), kind, limit)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		ui.Info("No snapshots found.")
		return nil
	}

	table := ui.Table([]string{"Kind", "Board", "Items", "Fetched"})
	for _, info := range infos {
		_ = table.Append([]string{
			info.Kind,
			info.Key,
			fmt.Sprintf("%d", info.ItemCount),
			info.FetchedAt.Local().Format(time.DateTime),
		})
	}
	_ = table.Render()
	return nil
}
