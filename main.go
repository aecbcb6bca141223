package main

import (
	"os"

	"github.com/SludgePhD/LiVid/cmd"
)

func main() {
	if err := cmd.CreateRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
