package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "expensa-api",
		Usage:                 "Submit expenses and run them through approval flows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			ImportCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
