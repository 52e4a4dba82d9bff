package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Save a memory to the mid tier",
		Long:  "Save a memory directly. Content can be --text, a positional arg, or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().String("text", "", "Memory content, or '-' to read stdin")
	cmd.Flags().IntP("importance", "i", 0, "Importance: 0 or 1")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	textFlag, _ := cmd.Flags().GetString("text")
	importance, _ := cmd.Flags().GetInt("importance")
	tagsStr, _ := cmd.Flags().GetString("tags")

	content, err := readText(cmd, textFlag, args)
	if err != nil {
		exitErr("remember", err)
	}

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	m, err := eng.Remember(cmd.Context(), engine.RememberParams{
		Content:    content,
		Importance: importance,
		Tags:       parseTags(tagsStr),
	})
	if err != nil {
		exitErr("remember", err)
	}

	printJSON(cmd, m)
}
