package main

import (
	"fmt"
	"os"

	"github.com/strata-io/strata/internal/cli"
	"github.com/strata-io/strata/internal/engine"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(engine.ExitCode(err))
	}
}
