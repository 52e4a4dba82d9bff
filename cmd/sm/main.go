package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/cli"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
