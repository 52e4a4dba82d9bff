package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search active memories",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("tier", "mid", "Tier: mid or long")
	cmd.Flags().IntP("limit", "l", store.DefaultListLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	tier, _ := cmd.Flags().GetString("tier")
	limit, _ := cmd.Flags().GetInt("limit")

	listMemories(cmd, store.ListParams{
		Tier:  model.Tier(tier),
		Query: strings.Join(args, " "),
		Limit: limit,
	})
}
