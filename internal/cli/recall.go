package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall <id>",
		Short: "Show a memory and count the lookup as a hit",
		Args:  cobra.ExactArgs(1),
		Run:   runRecall,
	}

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	id, err := parseID(args[0])
	if err != nil {
		exitErr("recall", err)
	}

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	m, err := eng.Recall(cmd.Context(), id)
	if err != nil {
		exitErr("recall", err)
	}

	printJSON(cmd, m)
}
