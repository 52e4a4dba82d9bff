package cli

import (
	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "patch <id>",
		Short: "Update a memory's status, content or tags",
		Args:  cobra.ExactArgs(1),
		Run:   runPatch,
	}

	cmd.Flags().String("status", "", "Status: active, archived or deleted")
	cmd.Flags().String("content", "", "New content")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags (empty string clears)")

	RootCmd.AddCommand(cmd)
}

func runPatch(cmd *cobra.Command, args []string) {
	id, err := parseID(args[0])
	if err != nil {
		exitErr("patch", err)
	}

	var p store.PatchParams
	if cmd.Flags().Changed("status") {
		v, _ := cmd.Flags().GetString("status")
		status := model.Status(v)
		p.Status = &status
	}
	if cmd.Flags().Changed("content") {
		v, _ := cmd.Flags().GetString("content")
		p.Content = &v
	}
	if cmd.Flags().Changed("tags") {
		v, _ := cmd.Flags().GetString("tags")
		tags := parseTags(v)
		p.Tags = &tags
	}

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	m, err := eng.Patch(cmd.Context(), id, p)
	if err != nil {
		exitErr("patch", err)
	}

	printJSON(cmd, m)
}
