package main

import (
	"os"

	"github.com/rcampos/macrodesk/cmd/macrodesk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
