package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "explain <id>",
		Aliases: []string{"why"},
		Short:   "Show how a memory's score is computed",
		Args:    cobra.ExactArgs(1),
		Run:     runExplain,
	}

	RootCmd.AddCommand(cmd)
}

func runExplain(cmd *cobra.Command, args []string) {
	id, err := parseID(args[0])
	if err != nil {
		exitErr("explain", err)
	}

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	ex, err := eng.Explain(cmd.Context(), id)
	if err != nil {
		exitErr("explain", err)
	}

	printJSON(cmd, ex)
}
