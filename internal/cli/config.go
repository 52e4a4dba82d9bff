package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run:   runConfigShow,
	}
	show.Flags().Bool("yaml", false, "Print YAML instead of JSON")

	set := &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set one value, e.g. mid.capacity 300",
		Example: "  sm config set extractor.mode heuristic\n  sm config set mid.promote_hits 5",
		Args:    cobra.ExactArgs(2),
		Run:     runConfigSet,
	}

	load := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace the configuration with a YAML file layered over defaults",
		Args:  cobra.ExactArgs(1),
		Run:   runConfigImport,
	}

	cmd.AddCommand(show, set, load)
	RootCmd.AddCommand(cmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	asYAML, _ := cmd.Flags().GetBool("yaml")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	cfg, err := s.LoadConfig(cmd.Context())
	if err != nil {
		exitErr("load config", err)
	}

	if !asYAML {
		printJSON(cmd, cfg)
		return
	}
	b, err := cfg.YAML()
	if err != nil {
		exitErr("encode config", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
}

func runConfigSet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	cfg, err := s.LoadConfig(cmd.Context())
	if err != nil {
		exitErr("load config", err)
	}
	next, err := cfg.Set(args[0], args[1])
	if err != nil {
		exitErr("config set", err)
	}
	if err := s.SaveConfig(cmd.Context(), next); err != nil {
		exitErr("save config", err)
	}

	printJSON(cmd, next)
}

func runConfigImport(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadFile(args[0])
	if err != nil {
		exitErr("config import", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.SaveConfig(cmd.Context(), cfg); err != nil {
		exitErr("save config", err)
	}

	printJSON(cmd, cfg)
}
