package main

import (
	"os"

	"github.com/penguinnnnn/kmon/cmd/kmon/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
