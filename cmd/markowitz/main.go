package main

import (
	"os"

	"github.com/aristath/markowitz/cmd/markowitz/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
