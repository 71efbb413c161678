package main

import (
	"os"

	"github.com/unkn0wn-root/ownercache/cmd/ocbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
