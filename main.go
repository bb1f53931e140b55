package main

import (
	"os"

	"github.com/homesight/homesight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
