package main

import (
	"os"

	"github.com/petlink-network/petlink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
