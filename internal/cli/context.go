package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get-context",
		Short: "Get a session's short-term turns plus top memories per tier",
		Run:   runGetContext,
	}

	cmd.Flags().StringP("session", "s", "", "Session ID (required)")
	cmd.Flags().IntP("k", "k", store.DefaultContextK, "Memories per tier")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

func runGetContext(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	k, _ := cmd.Flags().GetInt("k")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Context(cmd.Context(), store.ContextParams{SessionID: session, K: k})
	if err != nil {
		exitErr("get-context", err)
	}

	printJSON(cmd, res)
}
