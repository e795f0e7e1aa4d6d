package main

import (
	"os"

	"github.com/fbellom/parking-rfid-sim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
