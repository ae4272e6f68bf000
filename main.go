package main

import (
	"os"

	"github.com/voltmesh/prodsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
