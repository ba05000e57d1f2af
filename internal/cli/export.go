package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export keys as JSON",
		Long:  "Export every key as a JSON object of key to value. Filter by key prefix with --prefix.",
		Run:   runExport,
	}

	cmd.Flags().StringP("prefix", "p", "", "Filter by key prefix")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	values, err := s.ExportAll(cmd.Context(), prefix)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(values, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
