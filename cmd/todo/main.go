package main

import (
	"os"

	"github.com/idilsaglam/todoclient/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	os.Exit(cli.ExitCode(cmd.Execute()))
}
