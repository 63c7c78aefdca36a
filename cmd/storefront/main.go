package main

import (
	"os"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
