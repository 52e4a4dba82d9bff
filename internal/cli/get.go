package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a memory without counting a hit",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, err := parseID(args[0])
	if err != nil {
		exitErr("get", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := s.GetMemory(cmd.Context(), id)
	if err != nil {
		exitErr("get", err)
	}

	printJSON(cmd, m)
}
