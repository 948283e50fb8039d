package main

import (
	"os"

	"github.com/dalemusser/mailcheck/internal/cli"
)

func main() {
	os.Exit(cli.Run("mailcheck", os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
