// Package main provides the buildpy command-line application.
// It builds relocatable python interpreters from verified upstream sources.
package main

import (
	"log"
	"os"

	"github.com/buildpy-dev/buildpy/internal/cli"
)

func main() {
	app := cli.NewApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
