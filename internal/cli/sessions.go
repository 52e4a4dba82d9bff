package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with turn counts",
		Run:   runSessions,
	}

	RootCmd.AddCommand(cmd)
}

func runSessions(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := s.Sessions(cmd.Context())
	if err != nil {
		exitErr("sessions", err)
	}
	if sessions == nil {
		sessions = []store.SessionStats{}
	}

	printJSON(cmd, sessions)
}
