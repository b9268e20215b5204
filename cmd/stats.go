package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/tillgo/fastcgi/diagnostics"
)

var (
	statsFile string

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print the diagnostics snapshot from the most recent serve run",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	statsCmd.Flags().StringVar(&statsFile, "stats-file", "fcgid-stats.json", "path to the persisted diagnostics snapshot")
}

func runStats(cmd *cobra.Command, args []string) error {
	snap, err := diagnostics.ReadFile(statsFile)
	if err != nil {
		return err
	}
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
