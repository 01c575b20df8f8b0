package main

import (
	"os"

	"github.com/mhatami/trendpulse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
