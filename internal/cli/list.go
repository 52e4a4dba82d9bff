package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories of a tier by score",
		Run:   runList,
	}

	cmd.Flags().String("tier", "mid", "Tier: mid or long")
	cmd.Flags().String("layer", "", "Alias for --tier")
	cmd.Flags().String("status", "active", "Status: active, archived or deleted")
	cmd.Flags().StringP("q", "q", "", "Search query (full-text when enabled, else substring)")
	cmd.Flags().IntP("limit", "l", store.DefaultListLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	tier, _ := cmd.Flags().GetString("tier")
	if layer, _ := cmd.Flags().GetString("layer"); layer != "" {
		tier = layer
	}
	status, _ := cmd.Flags().GetString("status")
	q, _ := cmd.Flags().GetString("q")
	limit, _ := cmd.Flags().GetInt("limit")

	listMemories(cmd, store.ListParams{
		Tier:   model.Tier(tier),
		Status: model.Status(status),
		Query:  q,
		Limit:  limit,
	})
}

func listMemories(cmd *cobra.Command, p store.ListParams) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.ListMemories(cmd.Context(), p)
	if err != nil {
		exitErr("list", err)
	}
	if memories == nil {
		memories = []model.Memory{}
	}

	printJSON(cmd, memories)
}
