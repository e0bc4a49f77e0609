package main

import (
	"github.com/joho/godotenv"

	"github.com/quotawatch/quotawatch/internal/cli"
)

func main() {
	// Local .env is optional; tokens usually come from it.
	_ = godotenv.Load()

	cli.Execute()
}
