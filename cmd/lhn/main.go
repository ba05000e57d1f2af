package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rcliao/lhn/internal/cli"
)

func main() {
	_ = godotenv.Load(".env")
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
