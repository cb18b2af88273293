package main

import (
	"os"

	"github.com/pterm/pterm"

	"github.com/remake-build/remake/pkg/style"
)

func main() {
	if err := Execute(); err != nil {
		pterm.Println(style.RenderStatus(style.StatusStop, "%s", err))
		os.Exit(1)
	}
}
