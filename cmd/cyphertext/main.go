package main

import (
	"os"

	"cyphertext/cmd/cyphertext/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
