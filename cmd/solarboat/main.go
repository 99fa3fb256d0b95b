// Command solarboat is the CLI entry point: it wires cli.NewApp and
// translates the app's return error into the process exit code catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gruntwork-io/solarboat/cli"
)

func main() {
	app := cli.NewApp()

	err := app.RunContext(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	os.Exit(cli.ExitCode(err))
}
