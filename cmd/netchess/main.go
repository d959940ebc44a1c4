package main

import (
	"os"

	"github.com/aleklund/netchess/cmd/netchess/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
