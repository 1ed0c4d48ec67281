package main

import (
	"os"

	"github.com/abbaspour/guardian-go/cmd/guardian/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
