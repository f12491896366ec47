package main

import (
	"os"

	"github.com/coinvest-dev/coinvest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
