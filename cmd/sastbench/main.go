package main

import (
	"os"

	"github.com/Victor725/PySASTBench-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
