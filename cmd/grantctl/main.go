package main

import (
	"os"
)

func main() {
	if err := newRootCommand(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}
