package main

import (
	"os"

	"github.com/spigell/resume-reviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
