package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/scheduler"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serve the HTTP API until interrupted. With --gc-schedule, maintenance passes " +
			"also run on a cron schedule (e.g. \"0 3 * * *\" or \"@every 6h\").",
		Run: runServe,
	}

	cmd.Flags().String("host", envOr("SM_HOST", "127.0.0.1"), "Listen host")
	cmd.Flags().IntP("port", "p", 8787, "Listen port")
	cmd.Flags().String("gc-schedule", os.Getenv("SM_GC_SCHEDULE"), "Cron schedule for maintenance passes")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	schedule, _ := cmd.Flags().GetString("gc-schedule")

	s, eng, err := openEngine()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if schedule != "" {
		sched, err := scheduler.New(eng, schedule)
		if err != nil {
			exitErr("gc schedule", err)
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	logger.Info("serving", "db", s.Path(), "fts", s.FTSAvailable())
	if err := server.New(eng, s, host, port).Start(ctx); err != nil {
		exitErr("serve", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
