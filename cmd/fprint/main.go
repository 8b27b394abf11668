package main

import (
	"github.com/coder/fprint/cli"
)

func main() {
	var rootCmd cli.RootCmd
	rootCmd.Run()
}
