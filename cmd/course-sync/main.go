package main

import (
	"os"

	"github.com/bianoble/course-sync/cmd/course-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
