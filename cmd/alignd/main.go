package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/rtgae/alignd/internal/cli"
)

// version is set via -ldflags at release build time.
var version = "dev"

func main() {
	root := cli.NewRootCommand(version)
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}
