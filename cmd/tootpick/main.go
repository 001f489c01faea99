package main

import (
	"os"

	"github.com/vertotem/Mastodon-Random-Picker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
