package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "links <id>",
		Short: "Show the turns a memory was extracted from",
		Args:  cobra.ExactArgs(1),
		Run:   runLinks,
	}

	RootCmd.AddCommand(cmd)
}

func runLinks(cmd *cobra.Command, args []string) {
	id, err := parseID(args[0])
	if err != nil {
		exitErr("links", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	links, err := s.Links(cmd.Context(), id)
	if err != nil {
		exitErr("links", err)
	}

	printJSON(cmd, links)
}
