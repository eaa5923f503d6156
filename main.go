package main

import (
	"os"

	"github.com/bjaergning/rapport/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
