package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export every memory, any status, as a JSON array. Filter by tier with --tier.",
		Run:   runExport,
	}

	cmd.Flags().String("tier", "", "Filter by tier: mid or long")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	tier, _ := cmd.Flags().GetString("tier")
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.ExportAll(cmd.Context(), model.Tier(tier))
	if err != nil {
		exitErr("export", err)
	}
	if memories == nil {
		memories = []model.Memory{}
	}

	if output == "" {
		printJSON(cmd, memories)
		return
	}
	b, _ := json.MarshalIndent(memories, "", "  ")
	if err := os.WriteFile(output, append(b, '\n'), 0o644); err != nil {
		exitErr("export", err)
	}
	printJSON(cmd, map[string]any{"exported": len(memories), "file": output})
}
