package main

import (
	"fmt"
	"os"

	"ggufd/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ggufd:", err)
		os.Exit(1)
	}
}
