package main

import (
	"os"

	"steamguard/cmd/steamguard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
