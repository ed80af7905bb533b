package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/gemdeck/internal/client/cli"
)

func main() {
	if err := cli.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "deckctl:", err)
		os.Exit(1)
	}
}
