package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Run one maintenance pass: rescore, promote, evict, prune",
		Run:   runGC,
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent maintenance runs, newest first",
		Run:   runGCHistory,
	}
	history.Flags().IntP("limit", "n", 20, "Max runs")

	cmd.AddCommand(history)
	RootCmd.AddCommand(cmd)
}

func runGC(cmd *cobra.Command, args []string) {
	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	run, err := eng.GC(cmd.Context())
	if err != nil {
		exitErr("gc", err)
	}

	printJSON(cmd, run)
}

func runGCHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.GCRuns(cmd.Context(), limit)
	if err != nil {
		exitErr("gc history", err)
	}
	if runs == nil {
		runs = []model.GCRun{}
	}

	printJSON(cmd, runs)
}
