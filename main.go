package main

import (
	"os"

	"github.com/tidalwave-it/solidblue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
