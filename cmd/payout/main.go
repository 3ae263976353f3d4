package main

import (
	"fmt"
	"os"

	"batch_payout/cmd/payout/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
