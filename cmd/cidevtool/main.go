package main

import (
	"os"

	"github.com/atsushieno/midicci-sub001/cmd/cidevtool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
