package main

import (
	"os"

	"AccessDeck/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
