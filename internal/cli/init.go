package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and print its config",
		Run:   runInit,
	}

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	cfg, err := s.LoadConfig(cmd.Context())
	if err != nil {
		exitErr("load config", err)
	}

	printJSON(cmd, map[string]any{
		"db":            s.Path(),
		"fts_available": s.FTSAvailable(),
		"config":        cfg,
	})
}
