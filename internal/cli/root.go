// Package cli implements the sm CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/engine"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

// DefaultDBPath is used when neither --db nor SM_DB is set.
const DefaultDBPath = "./data/symbiosis.db"

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "sm",
	Short: "Tiered lifecycle memory for conversational agents",
	Long: "Symbiosis Memory records dialogue turns, extracts durable facts, scores them and " +
		"promotes or evicts them in periodic maintenance passes. SQLite-backed, single binary.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SM_DB or "+DefaultDBPath+")")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("SM_DB"); env != "" {
		return env
	}
	return DefaultDBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func openEngine() (*store.SQLiteStore, *engine.Engine, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return s, engine.New(s), nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// readText returns flag text, the joined positional args, or stdin when the
// text is "-" or nothing was given and stdin is piped.
func readText(cmd *cobra.Command, text string, args []string) (string, error) {
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	if text == "-" || (text == "" && stdinPiped(cmd)) {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	return strings.TrimSpace(text), nil
}

func stdinPiped(cmd *cobra.Command) bool {
	if cmd.InOrStdin() != os.Stdin {
		return true
	}
	stat, err := os.Stdin.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) == 0
}

func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: memory id %q must be a positive integer", model.ErrInvalid, s)
	}
	return id, nil
}
