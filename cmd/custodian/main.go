package main

import (
	"fmt"
	"os"

	"github.com/alexanderramin/custodian/internal/cli"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Plain output when piped or when NO_COLOR is set.
	fd := os.Stdout.Fd()
	if os.Getenv("NO_COLOR") != "" || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	return cli.NewRootCmd(&cli.App{}).Execute()
}
