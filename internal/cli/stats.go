package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/rcliao/lhn/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	collectionsCmd := &cobra.Command{
		Use:   "collections",
		Short: "List key counts per collection",
		Run:   runCollections,
	}

	RootCmd.AddCommand(statsCmd, collectionsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		printStatsText(cmd.OutOrStdout(), stats)
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func printStatsText(w io.Writer, st *store.Stats) {
	fmt.Fprintf(w, "database:  %s (%s)\n", st.DBPath, humanize.Bytes(uint64(st.DBSizeBytes)))
	fmt.Fprintf(w, "version:   %s\n", humanize.Comma(st.Version))
	fmt.Fprintf(w, "keys:      %s\n", humanize.Comma(int64(st.TotalKeys)))
	fmt.Fprintf(w, "changes:   %s\n", humanize.Comma(int64(st.Changes)))
	for _, c := range st.Collections {
		name := c.Collection
		if name == "" {
			name = "(single keys)"
		}
		fmt.Fprintf(w, "  %-16s %s\n", name, humanize.Comma(int64(c.Keys)))
	}
}

func runCollections(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.Collections(cmd.Context())
	if err != nil {
		exitErr("list collections", err)
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
