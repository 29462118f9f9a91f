package main

import (
	"os"

	"github.com/battsched/battsched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
