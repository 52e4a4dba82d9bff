package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/engine"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add-turn [text]",
		Short: "Record a dialogue turn and extract memories from it",
		Long:  "Record a dialogue turn. Text comes from --text, positional args, or stdin ('-' forces stdin).",
		Run:   runAddTurn,
	}

	cmd.Flags().StringP("session", "s", "", "Session ID (required)")
	cmd.Flags().StringP("role", "r", "user", "Role: user or assistant")
	cmd.Flags().StringP("text", "t", "", "Turn text, or '-' to read stdin")
	cmd.Flags().Bool("no-extract", false, "Disable auto extraction for this turn")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

func runAddTurn(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	role, _ := cmd.Flags().GetString("role")
	textFlag, _ := cmd.Flags().GetString("text")
	noExtract, _ := cmd.Flags().GetBool("no-extract")

	text, err := readText(cmd, textFlag, args)
	if err != nil {
		exitErr("add-turn", err)
	}

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	res, err := eng.Ingest(cmd.Context(), engine.IngestParams{
		SessionID:   session,
		Role:        model.Role(role),
		Text:        text,
		AutoExtract: !noExtract,
	})
	if err != nil {
		exitErr("add-turn", err)
	}

	printJSON(cmd, res)
}
