package main

import (
	"os"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
